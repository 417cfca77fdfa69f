// Package server implements the TCP request-dispatch loop (§4.8/C9):
// accept a connection, hand it to the thread pool, and on that worker
// decode one Request, invoke the engine, encode one Response, flush,
// repeat until the peer closes or a decode error occurs. Ported from
// the reference engine's KvsServer::run/handle (src/server.rs).
package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-kvsdb/kvsdb/internal/engine"
	"github.com/go-kvsdb/kvsdb/internal/pool"
	"github.com/go-kvsdb/kvsdb/internal/protocol"
)

// Store is what Server needs from a shared engine: the full
// engine.Store contract plus Clone, so every accepted connection gets
// its own goroutine-confined handle (see SPEC_FULL.md's note on
// reader-cache confinement replacing thread-local storage).
type Store interface {
	engine.Store
	Clone() engine.Store
}

// Server binds a listener and dispatches connections onto a thread
// pool against one shared engine.
type Server struct {
	store Store
	pool  pool.ThreadPool
	log   *zap.SugaredLogger

	mu sync.Mutex
	ln net.Listener
}

func New(store Store, p pool.ThreadPool, log *zap.SugaredLogger) *Server {
	return &Server{store: store, pool: p, log: log}
}

// Run binds addr and accepts connections until Close is called or
// Accept returns a fatal error. In-flight connections are not waited
// on here: the caller (cmd/kvs-server) joins the thread pool
// separately after Run returns, which is where jobs actually drain.
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.Infow("listening", "addr", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Errorw("accept failed", "error", err)
			return err
		}

		connID := uuid.New().String()
		clone := s.store.Clone()
		s.pool.Spawn(func() {
			s.handle(connID, conn, clone)
		})
	}
}

// Close stops Run's accept loop by closing the bound listener.
// Connections already in flight are not interrupted. Safe to call
// before Run has bound a listener (a no-op in that case).
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

// handle services one connection until the peer closes the socket or
// a malformed request can't be decoded. It never touches s.store
// directly: it was handed a private clone by Run, and that clone owns
// its own goroutine-confined reader cache.
func (s *Server) handle(connID string, conn net.Conn, store engine.Store) {
	defer conn.Close()
	defer store.Close()

	bw := bufio.NewWriter(conn)
	r := protocol.NewReader(conn)
	w := protocol.NewWriter(bw)

	for {
		req, err := r.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Errorw("decode request failed", "conn", connID, "error", err)
			}
			return
		}

		resp := s.dispatch(connID, req, store)

		if err := w.WriteResponse(resp); err != nil {
			s.log.Errorw("encode response failed", "conn", connID, "error", err)
			return
		}
		if err := bw.Flush(); err != nil {
			s.log.Errorw("flush response failed", "conn", connID, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(connID string, req protocol.Request, store engine.Store) protocol.Response {
	switch req.Op {
	case protocol.OpGet:
		value, found, err := store.Get(req.Key)
		if err != nil {
			s.log.Errorw("get failed", "conn", connID, "key", req.Key, "error", err)
			return protocol.Response{Ok: false, Err: err.Error()}
		}
		return protocol.Response{Ok: true, Found: found, Value: value}

	case protocol.OpSet:
		if err := store.Set(req.Key, req.Value); err != nil {
			s.log.Errorw("set failed", "conn", connID, "key", req.Key, "error", err)
			return protocol.Response{Ok: false, Err: err.Error()}
		}
		return protocol.Response{Ok: true}

	case protocol.OpRemove:
		if err := store.Remove(req.Key); err != nil {
			if !errors.Is(err, engine.ErrRecordNotFound) {
				s.log.Errorw("remove failed", "conn", connID, "key", req.Key, "error", err)
			}
			return protocol.Response{Ok: false, Err: err.Error()}
		}
		return protocol.Response{Ok: true}

	default:
		return protocol.Response{Ok: false, Err: "unknown operation: " + string(req.Op)}
	}
}
