package client

import (
	"net"
	"testing"

	"github.com/go-kvsdb/kvsdb/internal/protocol"
)

// fakeServer accepts one connection and answers every request with
// resp, whatever the request contained.
func fakeServer(t *testing.T, resp protocol.Response) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := protocol.NewReader(conn)
		w := protocol.NewWriter(conn)
		for {
			if _, err := r.ReadRequest(); err != nil {
				return
			}
			if err := w.WriteResponse(resp); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestGetFound(t *testing.T) {
	addr := fakeServer(t, protocol.Response{Ok: true, Found: true, Value: "value1"})

	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	got, found, err := c.Get("key1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || got != "value1" {
		t.Errorf("Get() = (%q, %v), want (value1, true)", got, found)
	}
}

func TestGetServerError(t *testing.T) {
	addr := fakeServer(t, protocol.Response{Ok: false, Err: "boom"})

	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, _, err := c.Get("key1"); err == nil {
		t.Error("Get() returned nil error for a failed response")
	}
}

func TestSetSuccess(t *testing.T) {
	addr := fakeServer(t, protocol.Response{Ok: true})

	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set("key1", "value1"); err != nil {
		t.Errorf("Set() error = %v", err)
	}
}
