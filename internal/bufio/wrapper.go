package bufio

import (
	"bytes"
	"io"
)

// BytesReader reads from an in-memory message. The lines it returns are
// subslices of the original buffer.
type BytesReader struct {
	b   []byte
	pos int
}

func NewBytesReader(b []byte) *BytesReader {
	return &BytesReader{b: b}
}

func (r *BytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

func (r *BytesReader) ReadUpTo(delim byte) ([]byte, bool, error) {
	rest := r.b[r.pos:]
	i := bytes.IndexByte(rest, delim)
	if i < 0 {
		r.pos = len(r.b)
		return rest, true, io.EOF
	}
	r.pos += i + 1
	return rest[:i+1], true, nil
}

var _ BufferedReader = &BytesReader{}
