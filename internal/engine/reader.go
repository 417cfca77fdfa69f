package engine

import (
	"sync/atomic"
)

// readerPool is the per-clone cache of open positioned readers,
// keyed by generation. It is deliberately unsynchronized: the
// contract (enforced by whoever hands out Engine clones — in this
// repo, internal/server, one clone per connection) is that a single
// readerPool is only ever touched by one goroutine at a time. This is
// the Go reading of the source's "thread-local reader cache" — see
// SPEC_FULL.md's note on goroutine confinement replacing OS-thread
// confinement.
//
// safePoint is shared across every clone descended from the same
// Engine: the writer bumps it after a successful compaction, and it
// is the only field in this struct that is genuinely concurrent.
type readerPool struct {
	dir       string
	safePoint *atomic.Uint64
	handles   map[uint64]*posReader
}

func newReaderPool(dir string, safePoint *atomic.Uint64) *readerPool {
	return &readerPool{dir: dir, safePoint: safePoint, handles: make(map[uint64]*posReader)}
}

// clone returns a new readerPool sharing dir and safePoint but with
// its own empty handle cache — the per-clone confinement boundary.
func (p *readerPool) clone() *readerPool {
	return newReaderPool(p.dir, p.safePoint)
}

// evictStale drops any cached handle whose generation has fallen
// behind the shared safe point, because the writer may have already
// unlinked that file. This must run before every lookup so a cached
// handle is never used past the point the writer considers it gone.
func (p *readerPool) evictStale() {
	sp := p.safePoint.Load()
	for gen, r := range p.handles {
		if gen < sp {
			r.Close()
			delete(p.handles, gen)
		}
	}
}

// get returns (opening lazily if necessary) the positioned reader for
// gen.
func (p *readerPool) get(gen uint64) (*posReader, error) {
	p.evictStale()

	if r, ok := p.handles[gen]; ok {
		return r, nil
	}
	r, err := openPosReader(gen, segmentPath(p.dir, gen))
	if err != nil {
		return nil, err
	}
	p.handles[gen] = r
	return r, nil
}

// read resolves pos to its decoded Command.
func (p *readerPool) read(pos CommandPos) (Command, error) {
	r, err := p.get(pos.Gen)
	if err != nil {
		return Command{}, err
	}
	b, err := r.readAt(pos.Offset, pos.Length)
	if err != nil {
		return Command{}, err
	}
	return decodeCommand(b)
}

// copyTo streams the record at pos into w, for use by compaction.
func (p *readerPool) copyTo(pos CommandPos, w *posWriter) (uint32, error) {
	r, err := p.get(pos.Gen)
	if err != nil {
		return 0, err
	}
	return r.copyTo(pos.Offset, pos.Length, w)
}

// closeAll closes every cached handle. Called when an Engine clone is
// discarded.
func (p *readerPool) closeAll() error {
	var firstErr error
	for gen, r := range p.handles {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.handles, gen)
	}
	return firstErr
}
