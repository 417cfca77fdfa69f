package protocol

import (
	"bytes"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	r := NewReader(&buf)

	want := Request{Op: OpSet, Key: "key1", Value: "value1"}
	if err := w.WriteRequest(want); err != nil {
		t.Fatalf("WriteRequest() error = %v", err)
	}

	got, err := r.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if got != want {
		t.Errorf("ReadRequest() = %+v, want %+v", got, want)
	}
}

func TestMultipleRequestsAreSelfDelimiting(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	reqs := []Request{
		{Op: OpSet, Key: "a", Value: "1"},
		{Op: OpGet, Key: "a"},
		{Op: OpRemove, Key: "a"},
	}
	for _, req := range reqs {
		if err := w.WriteRequest(req); err != nil {
			t.Fatal(err)
		}
	}

	r := NewReader(&buf)
	for i, want := range reqs {
		got, err := r.ReadRequest()
		if err != nil {
			t.Fatalf("ReadRequest() #%d error = %v", i, err)
		}
		if got != want {
			t.Errorf("ReadRequest() #%d = %+v, want %+v", i, got, want)
		}
	}
}

func TestResponseFoundFalseOmitsValue(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteResponse(Response{Ok: true, Found: false}); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	got, err := r.ReadResponse()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Ok || got.Found || got.Value != "" {
		t.Errorf("ReadResponse() = %+v, want Ok=true Found=false Value=\"\"", got)
	}
}
