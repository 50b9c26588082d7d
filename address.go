// Package addrspec validates and decomposes RFC 5322 addr-spec strings
// ("local-part@domain").
//
// Parsing is driven by the grammar of RFC 5322. The current syntax is always
// tried first; unless strict parsing is requested, the obsolete syntax of
// section 4.4 is tried next, which admits things like "test . test@iana.org"
// or control characters in domain literals.
//
// The local part and domain of a parsed Address are the verbatim spans of the
// input matched by the respective rules, including any folding white space
// and comments around them, so that
//
//	a.LocalPart() + "@" + a.Domain() == input
//
// always holds for an accepted input.
package addrspec

import (
	"errors"
)

// ErrInvalidAddress is returned by UnmarshalText for input that does not
// parse as an addr-spec.
var ErrInvalidAddress = errors.New("invalid addr-spec")

// Address is a parsed (or hand-built) mail address.
type Address struct {
	localPart string
	domain    string
	obsolete  bool
}

// New builds an Address from its parts without validating them.
func New(localPart, domain string) *Address {
	return &Address{
		localPart: localPart,
		domain:    domain,
	}
}

// LocalPart returns the part before the "@".
func (a *Address) LocalPart() string {
	return a.localPart
}

// Domain returns the part after the "@". A domain literal keeps its brackets.
func (a *Address) Domain() string {
	return a.domain
}

// Obsolete reports whether the address was accepted only by the obsolete
// syntax.
func (a *Address) Obsolete() bool {
	return a.obsolete
}

// String renders the address as local-part "@" domain.
func (a *Address) String() string {
	return a.localPart + "@" + a.domain
}

// MarshalText renders the address as String does, so an Address
// round-trips through UnmarshalText.
func (a *Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses b permissively.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, ok := ParseBytes(b)
	if !ok {
		return ErrInvalidAddress
	}
	*a = *parsed
	return nil
}
