package engine

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const segmentExt = ".log"

// segmentPath returns the path of the <gen>.log file for gen inside
// dir.
func segmentPath(dir string, gen uint64) string {
	return filepath.Join(dir, strconv.FormatUint(gen, 10)+segmentExt)
}

// listGenerations returns the ascending, sorted list of generation ids
// with a <gen>.log file in dir. Filenames whose stem doesn't parse as
// an unsigned decimal integer are ignored, per §4.2 — this is how a
// stray file in the data directory fails to wedge Open.
func listGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapIO("list segment directory", err)
	}

	var gens []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, segmentExt) {
			continue
		}
		stem := strings.TrimSuffix(name, segmentExt)
		gen, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			continue
		}
		gens = append(gens, gen)
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

// createSegment opens a fresh generation for both append-writing and
// positioned reading, returning paired handles as §4.2 requires.
func createSegment(dir string, gen uint64) (*posWriter, *posReader, error) {
	path := segmentPath(dir, gen)
	w, err := openPosWriter(gen, path)
	if err != nil {
		return nil, nil, err
	}
	r, err := openPosReader(gen, path)
	if err != nil {
		w.Close()
		return nil, nil, err
	}
	return w, r, nil
}

// deleteSegment unlinks the <gen>.log file for gen. Best-effort: it
// does not fsync the directory entry removal, matching §4.2.
func deleteSegment(dir string, gen uint64) error {
	if err := os.Remove(segmentPath(dir, gen)); err != nil {
		return wrapIO("delete segment", err)
	}
	return nil
}
