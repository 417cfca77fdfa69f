package server_test

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/go-kvsdb/kvsdb/internal/client"
	"github.com/go-kvsdb/kvsdb/internal/engine"
	"github.com/go-kvsdb/kvsdb/internal/pool"
	"github.com/go-kvsdb/kvsdb/internal/server"
)

func startTestServer(t *testing.T) string {
	t.Helper()

	store, err := engine.Open(t.TempDir())
	if err != nil {
		t.Fatalf("engine.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Shutdown() })

	p := pool.NewSharedQueuePool(2, nil)
	t.Cleanup(p.Close)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := server.New(store, p, zap.NewNop().Sugar())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(addr) }()

	// give the listener a moment to bind before clients dial it
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", addr)
	return ""
}

func TestServerSetGetRemove(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("client.Dial() error = %v", err)
	}
	defer c.Close()

	if err := c.Set("key1", "value1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := c.Get("key1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "value1" {
		t.Errorf("Get() = (%q, %v), want (value1, true)", value, found)
	}

	if err := c.Remove("key1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	_, found, err = c.Get("key1")
	if err != nil {
		t.Fatalf("Get() after Remove error = %v", err)
	}
	if found {
		t.Error("Get() found = true after Remove, want false")
	}
}

func TestServerGetMissingKey(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("client.Dial() error = %v", err)
	}
	defer c.Close()

	_, found, err := c.Get("nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Get() found = true, want false")
	}
}

func TestServerRemoveMissingKeyReturnsError(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("client.Dial() error = %v", err)
	}
	defer c.Close()

	if err := c.Remove("nope"); err == nil {
		t.Error("Remove() on missing key returned nil error, want one")
	}
}

func TestServerCloseStopsAcceptLoop(t *testing.T) {
	store, err := engine.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Shutdown()

	p := pool.NewSharedQueuePool(2, nil)
	defer p.Close()

	srv := server.New(store, p, zap.NewNop().Sugar())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run("127.0.0.1:0") }()

	// give Run a moment to bind before closing it
	time.Sleep(50 * time.Millisecond)
	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() returned error = %v after Close(), want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after Close()")
	}
}

func TestServerHandlesMultipleConnections(t *testing.T) {
	addr := startTestServer(t)

	c1, err := client.Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()
	c2, err := client.Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	if err := c1.Set("shared", "from-c1"); err != nil {
		t.Fatal(err)
	}
	value, found, err := c2.Get("shared")
	if err != nil || !found || value != "from-c1" {
		t.Errorf("c2.Get(shared) = (%q, %v, %v), want (from-c1, true, nil)", value, found, err)
	}
}
