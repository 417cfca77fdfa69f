// Package engine implements the log-structured key-value storage
// engine: an append-only segmented log, an in-memory ordered index,
// and an inline online compactor, all reachable through the cheaply
// clonable Engine facade.
package engine

import (
	"os"
	"sync/atomic"

	"go.uber.org/multierr"
)

// Store is the interface the TCP request-dispatch layer (internal/server)
// programs against. Both the log-structured Engine here and the
// alternate internal/sledengine backend satisfy it, per §6.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
	Remove(key string) error
	Close() error
}

// Engine is a cheaply clonable handle onto a store directory. Clones
// share the index, the writer, and the safe-point counter; each has
// its own private reader-handle cache. See SPEC_FULL.md's note on
// goroutine-confined clones replacing OS-thread-local state.
type Engine struct {
	dir       string
	idx       *index
	w         *writer
	safePoint *atomic.Uint64
	readers   *readerPool
}

var _ Store = (*Engine)(nil)

// Open opens (creating if necessary) a log-structured store rooted at
// dir. It scans every existing <gen>.log file in ascending generation
// order, replays each to reconstruct the index and stale-byte
// counter, then allocates a fresh active segment — the lifecycle
// described in §3.
func Open(dir string) (*Engine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wrapIO("create store directory", err)
	}

	gens, err := listGenerations(dir)
	if err != nil {
		return nil, err
	}

	idx := newIndex()
	var staleBytes uint64
	for _, gen := range gens {
		if err := replaySegment(dir, gen, idx, &staleBytes); err != nil {
			return nil, err
		}
	}

	var nextGen uint64 = 1
	if len(gens) > 0 {
		nextGen = gens[len(gens)-1] + 1
	}

	active, err := openPosWriter(nextGen, segmentPath(dir, nextGen))
	if err != nil {
		return nil, err
	}

	safePoint := &atomic.Uint64{}
	readers := newReaderPool(dir, safePoint)
	w := newWriter(dir, idx, newReaderPool(dir, safePoint), safePoint, active, nextGen, staleBytes)

	return &Engine{dir: dir, idx: idx, w: w, safePoint: safePoint, readers: readers}, nil
}

// replaySegment decodes every record in gen's log file, applying Sets
// and Removes to idx in file order and accumulating the stale-byte
// count exactly as the live writer would have: a key overwritten
// within (or across) segments adds its prior length to staleBytes, and
// a Remove whose key is already absent is a silent no-op (§7).
func replaySegment(dir string, gen uint64, idx *index, staleBytes *uint64) error {
	path := segmentPath(dir, gen)
	f, err := os.Open(path)
	if err != nil {
		return wrapIO("open segment for replay", err)
	}
	defer f.Close()

	return commandStreamReplay(f, func(cmd Command, start, end uint64) error {
		switch cmd.CommandType {
		case CommandSet:
			pos := CommandPos{Gen: gen, Offset: start, Length: uint32(end - start)}
			prev, had := idx.insert(cmd.Key, pos)
			if had {
				*staleBytes += uint64(prev.Length)
			}
		case CommandRemove:
			if prev, had := idx.remove(cmd.Key); had {
				*staleBytes += uint64(prev.Length)
			}
			// The tombstone itself is stale too, as in writer.remove.
			*staleBytes += end - start
		}
		return nil
	})
}

// Set stores value under key, overwriting any previous value.
func (e *Engine) Set(key, value string) error {
	return e.w.set(key, value)
}

// maxStaleReads bounds the index-refresh retry in Get: each retry
// corresponds to one compaction having raced ahead of the read, which
// cannot happen more than a handful of times in a row.
const maxStaleReads = 8

// Get returns the value for key and true, or ok=false if the key is
// absent. Get never touches the writer's mutex: it reads the index
// under the index's own RWMutex and then does a positioned read
// through this clone's private reader cache.
//
// A concurrent compaction can advance safePoint and unlink a
// generation between the index lookup and the positioned read. When
// that race is caught — either because the looked-up position is
// already behind safePoint, or because opening its generation fails —
// Get re-queries the index for the key's current position instead of
// surfacing a bogus IO error, per §5's "must work correctly under
// concurrent access" requirement.
func (e *Engine) Get(key string) (string, bool, error) {
	for attempt := 0; ; attempt++ {
		pos, ok := e.idx.get(key)
		if !ok {
			return "", false, nil
		}

		stale := pos.Gen < e.safePoint.Load()
		cmd, err := e.readers.read(pos)
		if err != nil {
			if (stale || pos.Gen < e.safePoint.Load()) && attempt < maxStaleReads {
				continue
			}
			return "", false, err
		}
		return cmd.Value, true, nil
	}
}

// Remove deletes key, failing with ErrRecordNotFound if it is absent.
func (e *Engine) Remove(key string) error {
	return e.w.remove(key)
}

// Clone returns a new handle sharing this Engine's index, writer, and
// safe point, with its own empty reader-handle cache. Callers must
// confine a single clone to one goroutine at a time (see
// SPEC_FULL.md); internal/server does this by handing exactly one
// clone to the pool job processing each connection.
func (e *Engine) Clone() Store {
	return &Engine{
		dir:       e.dir,
		idx:       e.idx,
		w:         e.w,
		safePoint: e.safePoint,
		readers:   e.readers.clone(),
	}
}

// Close releases this clone's own reader handles. It is safe to call
// on every clone independently (each owns a private cache); it does
// not affect the shared writer or other clones. The store directory
// itself stays durable regardless of how many clones have been
// closed, per §3's lifecycle note.
func (e *Engine) Close() error {
	return e.readers.closeAll()
}

// Shutdown closes the shared active segment file, in addition to this
// handle's own readers. Only the owner of a store's lifecycle (in this
// repo, cmd/kvs-server and cmd/kvs, not per-connection clones handed
// out by internal/server) should call it, and only once.
func (e *Engine) Shutdown() error {
	var errs error
	errs = multierr.Append(errs, e.readers.closeAll())
	errs = multierr.Append(errs, e.w.active.Close())
	return errs
}
