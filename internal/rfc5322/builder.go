package rfc5322

import (
	"io"
	"strings"
)

// Builder is a Handler writing the message back out with CRLF line
// terminators.
type Builder struct {
	io.Writer
	shortWrite bool
}

var crlf = []byte{'\r', '\n'}

func (bl *Builder) write(b []byte) error {
	n, err := bl.Writer.Write(b)
	if n != len(b) {
		bl.shortWrite = true
	}
	if err == nil && bl.shortWrite {
		err = io.ErrShortWrite
	}
	return err
}

func (bl *Builder) HandleStraggler(b []byte) error {
	err := bl.write(b)
	if err != nil {
		return err
	}
	return bl.write(crlf)
}

func (bl *Builder) HandleField(lines [][]byte) error {
	for _, l := range lines {
		err := bl.write(l)
		if err != nil {
			return err
		}
		err = bl.write(crlf)
		if err != nil {
			return err
		}
	}
	return nil
}

func (bl *Builder) HandleBody(r io.Reader) error {
	err := bl.write(crlf)
	if err != nil {
		return err
	}
	_, err = io.Copy(bl.Writer, r)
	return err
}

func (bl *Builder) ShortWrite() bool {
	return bl.shortWrite
}

// MaxLineLen is the line length folding aims for.
const MaxLineLen = 78

// Field is a header field to be written.
type Field struct {
	Name  string
	Value string
}

// Lines renders the field as physical lines, folding the value at white
// space so that lines stay within MaxLineLen where possible. A word longer
// than that is never broken.
func (f Field) Lines() [][]byte {
	words := strings.Fields(f.Value)
	cur := []byte(f.Name + ":")
	var lines [][]byte
	for _, w := range words {
		if len(cur)+1+len(w) > MaxLineLen && !isFieldName(cur, f.Name) {
			lines = append(lines, cur)
			cur = []byte{'\t'}
			cur = append(cur, w...)
			continue
		}
		cur = append(cur, ' ')
		cur = append(cur, w...)
	}
	return append(lines, cur)
}

func isFieldName(l []byte, name string) bool {
	return len(l) == len(name)+1 && string(l[:len(name)]) == name
}
