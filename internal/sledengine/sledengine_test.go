package sledengine

import (
	"errors"
	"testing"

	"github.com/go-kvsdb/kvsdb/internal/engine"
)

func TestSetGetRoundTrip(t *testing.T) {
	e, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer e.Close()

	if err := e.Set("key1", "value1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, found, err := e.Get("key1")
	if err != nil || !found || got != "value1" {
		t.Errorf("Get() = (%q, %v, %v), want (value1, true, nil)", got, found, err)
	}
}

func TestRemoveMissingKeyFails(t *testing.T) {
	e, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if err := e.Remove("nope"); !errors.Is(err, engine.ErrRecordNotFound) {
		t.Errorf("Remove() error = %v, want ErrRecordNotFound", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Set("key1", "value1"); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer reopened.Close()

	got, found, err := reopened.Get("key1")
	if err != nil || !found || got != "value1" {
		t.Errorf("Get() after reopen = (%q, %v, %v), want (value1, true, nil)", got, found, err)
	}
}
