package rfc5322

import (
	"io"
)

// Prepend writes the stored message to w with fields placed at the top of
// its header. Stored fields named in replace are left out, as are leading
// continuation lines, which would otherwise fold into the last prepended
// field. s itself is not modified.
func (s Store) Prepend(w io.Writer, fields []Field, replace ...string) error {
	s = append(Store(nil), s...)
	s.Remove(replace...)
	s.Filter(func(c Component) bool {
		return c.Type != StragglerComponent
	})
	bl := &Builder{Writer: w}
	for _, f := range fields {
		if err := bl.HandleField(f.Lines()); err != nil {
			return err
		}
	}
	return s.Replay(bl)
}
