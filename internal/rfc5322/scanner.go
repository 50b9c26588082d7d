// Package rfc5322 splits a message into header fields and body, and writes
// them back out.
package rfc5322

import (
	"io"

	"github.com/moriyoshi/addrspec/internal/bufio"
)

// Handler receives the parts of a message in order. A field arrives as its
// physical lines with the line terminators removed; the first line holds the
// field name.
type Handler interface {
	// HandleStraggler is called for a continuation line with no field to
	// continue.
	HandleStraggler([]byte) error
	HandleField([][]byte) error
	HandleBody(io.Reader) error
}

func readLineSlice(r bufio.BufferedReader) ([]byte, bool, error) {
	l, borrowable, err := r.ReadUpTo('\n')
	if len(l) == 0 {
		return nil, true, err
	}
	if l[len(l)-1] == '\n' {
		if len(l) >= 2 && l[len(l)-2] == '\r' {
			l = l[:len(l)-2]
		} else {
			l = l[:len(l)-1]
		}
	}
	return l, borrowable, err
}

func isWSP(b byte) bool {
	return b == ' ' || b == '\t'
}

// Scan reads the header section of r up to the first empty line, then hands
// the rest of r to the handler as the body. Bare LF is accepted as a line
// terminator.
func Scan(r bufio.BufferedReader, h Handler) error {
	var lines [][]byte
	flush := func() error {
		if len(lines) == 0 {
			return nil
		}
		err := h.HandleField(lines)
		lines = nil
		return err
	}
	for {
		l, borrowable, err := readLineSlice(r)
		eof := err == io.EOF
		if err != nil && !eof {
			return err
		}
		if len(l) == 0 {
			if err := flush(); err != nil {
				return err
			}
			if eof {
				// header only
				return h.HandleBody(eofReader{})
			}
			break
		}
		if !borrowable {
			l = append([]byte(nil), l...)
		}
		if isWSP(l[0]) {
			if len(lines) == 0 {
				if err := h.HandleStraggler(l); err != nil {
					return err
				}
			} else {
				lines = append(lines, l)
			}
		} else {
			if err := flush(); err != nil {
				return err
			}
			lines = [][]byte{l}
		}
		if eof {
			if err := flush(); err != nil {
				return err
			}
			return h.HandleBody(eofReader{})
		}
	}
	return h.HandleBody(r)
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
