// Command kvs-server runs the TCP frontend over either the
// log-structured engine or the single-file alternate backend (§6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-kvsdb/kvsdb/internal/config"
	"github.com/go-kvsdb/kvsdb/internal/engine"
	"github.com/go-kvsdb/kvsdb/internal/kvslog"
	"github.com/go-kvsdb/kvsdb/internal/pool"
	"github.com/go-kvsdb/kvsdb/internal/server"
	"github.com/go-kvsdb/kvsdb/internal/sledengine"
)

const markerFile = "engine"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		addr       = pflag.StringP("addr", "a", "127.0.0.1:4000", "IP address and port to bind")
		engineName = pflag.StringP("engine", "e", "kvs", "storage engine: kvs or sled")
		configPath = pflag.String("config", "", "optional hujson config file; flags override its values")
		debug      = pflag.Bool("debug", false, "enable human-readable debug logging")
	)
	pflag.Parse()

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kvs-server: load config: %v\n", err)
			return 1
		}
		if !pflag.CommandLine.Changed("addr") && cfg.Addr != "" {
			*addr = cfg.Addr
		}
		if !pflag.CommandLine.Changed("engine") && cfg.Engine != "" {
			*engineName = cfg.Engine
		}
		if !pflag.CommandLine.Changed("debug") && cfg.Debug {
			*debug = cfg.Debug
		}
	}

	log, err := kvslog.New(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-server: build logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	log.Infow("starting kvs-server", "addr", *addr, "engine", *engineName)

	dir, err := os.Getwd()
	if err != nil {
		log.Errorw("getwd failed", "error", err)
		return 1
	}

	if err := ensureEngineMarker(dir, *engineName); err != nil {
		log.Errorw("engine marker check failed", "error", err)
		return 1
	}

	store, err := openStore(dir, *engineName)
	if err != nil {
		log.Errorw("open store failed", "engine", *engineName, "error", err)
		return 1
	}

	p := pool.NewSharedQueuePool(numWorkers(), log)
	// Deferred in this order so they unwind pool-first: every
	// in-flight job finishes (and releases its store clone) before the
	// shared store itself is shut down.
	defer store.Shutdown()
	defer p.Close()

	srv := server.New(store, p, log)
	if err := runUntilSignal(srv, *addr, log); err != nil {
		log.Errorw("server exited with error", "error", err)
		return 1
	}
	return 0
}

// runUntilSignal runs the server's accept loop and a signal watcher
// concurrently via an errgroup, so SIGINT/SIGTERM closes the listener
// and Run returns cleanly instead of the process dying mid-accept.
func runUntilSignal(srv *server.Server, addr string, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := new(errgroup.Group)
	g.Go(func() error {
		return srv.Run(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Infow("shutdown signal received, closing listener")
		return srv.Close()
	})
	return g.Wait()
}

// storeHandle is the subset of engine.Store plus the Clone/Shutdown
// pair needed to run a server and release resources cleanly on exit.
type storeHandle interface {
	server.Store
	Shutdown() error
}

func openStore(dir, engineName string) (storeHandle, error) {
	switch engineName {
	case "sled":
		return sledWrapper{}.open(dir)
	default:
		return engine.Open(dir)
	}
}

// sledWrapper adapts sledengine.Engine (which has no Shutdown, since
// Close already releases everything) onto storeHandle.
type sledWrapper struct{}

func (sledWrapper) open(dir string) (storeHandle, error) {
	e, err := sledengine.Open(dir)
	if err != nil {
		return nil, err
	}
	return sledShutdown{e}, nil
}

type sledShutdown struct{ *sledengine.Engine }

func (s sledShutdown) Shutdown() error { return s.Close() }

// ensureEngineMarker writes an atomic marker file recording which
// engine first created this directory, and refuses to start against a
// mismatched engine on a later run, per §6.
func ensureEngineMarker(dir, engineName string) error {
	path := filepath.Join(dir, markerFile)
	existing, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return atomic.WriteFile(path, strings.NewReader(engineName))
	}
	if string(existing) != engineName {
		return fmt.Errorf("kvs-server: store was created with engine %q, refusing to open with %q", existing, engineName)
	}
	return nil
}

func numWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
