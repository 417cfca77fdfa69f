package engine

import (
	"sync"

	"github.com/google/btree"
)

// CommandPos points at the live record for a key: the generation that
// holds it, its byte offset within that segment, and its length.
type CommandPos struct {
	Gen    uint64
	Offset uint64
	Length uint32
}

// indexEntry is the ordered-map element stored in the btree; Key
// drives ordering, Pos is the payload.
type indexEntry struct {
	Key string
	Pos CommandPos
}

func lessEntry(a, b indexEntry) bool {
	return a.Key < b.Key
}

// index is the ordered, concurrent key -> CommandPos map described in
// §4.3. It is backed by a google/btree BTreeG (an ordered map
// primitive carried over from the example pack) rather than a bare
// Go map specifically so compaction can iterate keys cheaply and in a
// stable order; correctness under concurrent access comes from the
// single sync.RWMutex guarding it, the "single-writer multi-reader
// lock over a sorted map" option §4.3 explicitly allows.
type index struct {
	mu sync.RWMutex
	bt *btree.BTreeG[indexEntry]
}

func newIndex() *index {
	return &index{bt: btree.NewG(32, lessEntry)}
}

// get returns the CommandPos for key, or ok=false if the key is
// absent.
func (idx *index) get(key string) (CommandPos, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.bt.Get(indexEntry{Key: key})
	return e.Pos, ok
}

// insert overwrites (or creates) the entry for key, returning the
// prior CommandPos and whether one existed.
func (idx *index) insert(key string, pos CommandPos) (CommandPos, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	prev, had := idx.bt.ReplaceOrInsert(indexEntry{Key: key, Pos: pos})
	return prev.Pos, had
}

// remove deletes the entry for key, returning the prior CommandPos and
// whether one existed.
func (idx *index) remove(key string) (CommandPos, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	prev, had := idx.bt.Delete(indexEntry{Key: key})
	return prev.Pos, had
}

// ascend calls fn for every (key, pos) pair in ascending key order,
// stopping early if fn returns false. Used by compaction to rewrite
// every live record into the fresh segment.
func (idx *index) ascend(fn func(key string, pos CommandPos) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	idx.bt.Ascend(func(e indexEntry) bool {
		return fn(e.Key, e.Pos)
	})
}

// update rewrites the CommandPos for an existing key in place, used by
// compaction once a record's bytes have been copied to the new
// segment. It replaces (or inserts) the entry unconditionally and does
// not check whether the key was removed or overwritten in the meantime;
// the writer lock is held for the whole compaction, so no other
// mutation can interleave.
func (idx *index) update(key string, pos CommandPos) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.bt.ReplaceOrInsert(indexEntry{Key: key, Pos: pos})
}

// len returns the number of live keys.
func (idx *index) len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.bt.Len()
}
