// Package bufio adapts in-memory messages to the line reader the message
// scanner consumes.
package bufio

import (
	"io"
)

type LineReader interface {
	// ReadUpTo returns the bytes up to and including delim. The second
	// return value reports whether the slice stays valid after the next
	// read, in which case the caller may keep it without copying.
	ReadUpTo(delim byte) ([]byte, bool, error)
}

type BufferedReader interface {
	io.Reader
	LineReader
}
