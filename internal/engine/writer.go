package engine

import (
	"sync"
	"sync/atomic"
)

// compactionThreshold is the stale-byte watermark (§3) above which a
// set or remove triggers an inline compaction before returning.
const compactionThreshold = 1 << 20 // 1 MiB

// writer is the single serialization point for all mutations. Every
// Engine clone holds a pointer to the same writer; its mutex is the
// "only one thread may append at a time" boundary from §5. The
// algorithm below (including the flush-not-fsync durability choice
// and the two-generation compaction scheme) is ported near verbatim
// from the reference engine's KvStoreWriter.
type writer struct {
	mu sync.Mutex

	dir       string
	idx       *index
	readers   *readerPool // the writer's own reader handles, used only during compaction's copy step
	safePoint *atomic.Uint64

	active     *posWriter
	activeGen  uint64
	staleBytes uint64
}

func newWriter(dir string, idx *index, readers *readerPool, safePoint *atomic.Uint64, active *posWriter, activeGen uint64, staleBytes uint64) *writer {
	return &writer{
		dir:        dir,
		idx:        idx,
		readers:    readers,
		safePoint:  safePoint,
		active:     active,
		activeGen:  activeGen,
		staleBytes: staleBytes,
	}
}

// set appends a Set record, then installs its position in the index.
// Write-then-update is the reference ordering from §4.5: a failed
// append never lets a stale index entry look live.
func (w *writer) set(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cmd := Command{CommandType: CommandSet, Key: key, Value: value}
	b, err := encodeCommand(cmd)
	if err != nil {
		return err
	}

	start := w.active.pos
	n, err := w.active.write(b)
	if err != nil {
		return err
	}
	pos := CommandPos{Gen: w.activeGen, Offset: start, Length: uint32(n)}

	prev, had := w.idx.insert(key, pos)
	if had {
		// The counter deliberately does not also count this write's own
		// bytes, even though it overwrote a key — see SPEC_FULL.md
		// "Open Question 9(a)".
		w.staleBytes += uint64(prev.Length)
	}

	if w.staleBytes > compactionThreshold {
		return w.compact()
	}
	return nil
}

// remove deletes key from the index — the point of acknowledgement —
// then appends a tombstone so a restart can reconstruct the same
// state. A crash between the two leaves the tombstone unwritten; since
// the prior Set is still on disk, reopening would resurrect the key.
// This is documented, accepted behavior per §9(c), not a bug to route
// around by reordering the two steps.
func (w *writer) remove(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, had := w.idx.remove(key)
	if !had {
		return ErrRecordNotFound
	}
	w.staleBytes += uint64(prev.Length)

	cmd := Command{CommandType: CommandRemove, Key: key}
	b, err := encodeCommand(cmd)
	if err != nil {
		return err
	}
	n, err := w.active.write(b)
	if err != nil {
		return err
	}
	// The tombstone itself is immediately obsolete: no live Set follows
	// it, so its bytes are stale the instant they land.
	w.staleBytes += uint64(n)

	if w.staleBytes > compactionThreshold {
		return w.compact()
	}
	return nil
}

// compact rewrites every live record into a fresh segment and unlinks
// every segment older than it. Must be called with w.mu held.
func (w *writer) compact() error {
	compactGen := w.activeGen + 1
	newActiveGen := w.activeGen + 2

	compactWriter, compactReader, err := createSegment(w.dir, compactGen)
	if err != nil {
		return err
	}

	var rewriteErr error
	type move struct {
		key string
		pos CommandPos
	}
	var moves []move

	w.idx.ascend(func(key string, pos CommandPos) bool {
		newOffset := compactWriter.pos
		n, err := w.readers.copyTo(pos, compactWriter)
		if err != nil {
			rewriteErr = err
			return false
		}
		moves = append(moves, move{key: key, pos: CommandPos{Gen: compactGen, Offset: newOffset, Length: n}})
		return true
	})
	if rewriteErr != nil {
		compactWriter.Close()
		compactReader.Close()
		return rewriteErr
	}
	for _, m := range moves {
		w.idx.update(m.key, m.pos)
	}

	if err := compactWriter.buf.Flush(); err != nil {
		compactReader.Close()
		return wrapIO("flush compacted segment", err)
	}
	compactReader.Close()
	compactWriter.Close()

	newActive, err := openPosWriter(newActiveGen, segmentPath(w.dir, newActiveGen))
	if err != nil {
		return err
	}

	oldActive := w.active
	w.active = newActive
	w.activeGen = newActiveGen
	oldActive.Close()

	// Publish the safe point before unlinking anything: a reader that
	// observes the bump first will refresh its cache before it can ever
	// dereference a handle the next line deletes.
	w.safePoint.Store(compactGen)

	gens, err := listGenerations(w.dir)
	if err != nil {
		return err
	}
	for _, gen := range gens {
		if gen < compactGen {
			if err := deleteSegment(w.dir, gen); err != nil {
				return err
			}
		}
	}

	w.readers.evictStale()
	w.staleBytes = 0
	return nil
}
