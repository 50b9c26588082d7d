package rfc5322

import (
	"bytes"
	"io"
)

type ComponentType int

const (
	FieldComponent ComponentType = iota
	StragglerComponent
	BodyComponent
)

type Component struct {
	Type ComponentType
	Data [][]byte
}

// Name returns the field name of a field component, or nil.
func (c Component) Name() []byte {
	if c.Type != FieldComponent {
		return nil
	}
	i := bytes.IndexByte(c.Data[0], ':')
	if i < 0 {
		return nil
	}
	return bytes.TrimRight(c.Data[0][:i], " \t")
}

// Value returns the unfolded value of a field component with surrounding
// white space trimmed.
func (c Component) Value() []byte {
	if c.Type != FieldComponent {
		return nil
	}
	i := bytes.IndexByte(c.Data[0], ':')
	if i < 0 {
		return nil
	}
	v := append([]byte(nil), c.Data[0][i+1:]...)
	for _, l := range c.Data[1:] {
		v = append(v, l...)
	}
	return bytes.TrimSpace(v)
}

// Store is a Handler recording a message so that it can be inspected,
// edited and replayed.
type Store []Component

func (s *Store) HandleStraggler(b []byte) error {
	b = append([]byte(nil), b...)
	*s = append(*s, Component{Type: StragglerComponent, Data: [][]byte{b}})
	return nil
}

func (s *Store) HandleField(lines [][]byte) error {
	*s = append(*s, Component{Type: FieldComponent, Data: lines})
	return nil
}

func (s *Store) HandleBody(r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	*s = append(*s, Component{Type: BodyComponent, Data: [][]byte{body}})
	return nil
}

// Get returns the value of the first field named name, compared
// case-insensitively.
func (s Store) Get(name string) ([]byte, bool) {
	for _, c := range s {
		if n := c.Name(); n != nil && bytes.EqualFold(n, []byte(name)) {
			return c.Value(), true
		}
	}
	return nil, false
}

// Filter keeps the components for which keep returns true.
func (s *Store) Filter(keep func(Component) bool) {
	kept := (*s)[:0]
	for _, c := range *s {
		if keep(c) {
			kept = append(kept, c)
		}
	}
	*s = kept
}

// Remove drops every field with one of the given names.
func (s *Store) Remove(names ...string) {
	s.Filter(func(c Component) bool {
		n := c.Name()
		if n == nil {
			return true
		}
		for _, name := range names {
			if bytes.EqualFold(n, []byte(name)) {
				return false
			}
		}
		return true
	})
}

func (s Store) Replay(h Handler) error {
	for _, c := range s {
		var err error
		switch c.Type {
		case FieldComponent:
			err = h.HandleField(c.Data)
		case StragglerComponent:
			err = h.HandleStraggler(c.Data[0])
		case BodyComponent:
			err = h.HandleBody(bytes.NewReader(c.Data[0]))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
