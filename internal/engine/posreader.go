package engine

import (
	"io"
	"os"
)

// posReader is a read-only handle on one segment file. Reads are
// positioned (pread-style via ReadAt) rather than seek-then-read, so a
// single handle can be used for interleaved reads of different
// records without tracking a cursor — mirrors the teacher's
// segment.read, which already reads with ReadAt(buf, offset).
type posReader struct {
	gen uint64
	f   *os.File
}

func openPosReader(gen uint64, path string) (*posReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIO("open segment for read", err)
	}
	return &posReader{gen: gen, f: f}, nil
}

// readAt reads exactly length bytes starting at offset.
func (r *posReader) readAt(offset uint64, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := r.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, wrapIO("read record", err)
	}
	return buf, nil
}

// copyTo streams length bytes starting at offset directly into w's
// buffer, returning the number of bytes copied. Used by compaction so
// a live record is never fully materialized as an intermediate
// decoded Command — only its raw bytes move from the old segment to
// the new one.
func (r *posReader) copyTo(offset uint64, length uint32, w *posWriter) (uint32, error) {
	section := io.NewSectionReader(r.f, int64(offset), int64(length))
	n, err := io.Copy(w.buf, section)
	if err != nil {
		return 0, wrapIO("copy record during compaction", err)
	}
	w.pos += uint64(n)
	return uint32(n), nil
}

func (r *posReader) Close() error {
	return r.f.Close()
}
