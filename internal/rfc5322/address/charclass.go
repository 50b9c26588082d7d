// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package address

// Bytes >= 0x80 stand for UTF-8 encoded non-ASCII characters (RFC 6532) and
// are accepted wherever RFC 6532 allows UTF8-non-ascii.

// isAtext reports whether r is an RFC 5322 atext character.
func isAtext(r byte) bool {
	switch r {
	// RFC 5322 3.2.3. specials
	case '(', ')', '<', '>', '[', ']', ':', ';', '@', '\\', ',', '.', '"':
		return false
	}
	return isVchar(r)
}

// isQtext reports whether r is an RFC 5322 qtext character.
func isQtext(r byte) bool {
	// Printable US-ASCII, excluding backslash or quote.
	if r == '\\' || r == '"' {
		return false
	}
	return isVchar(r)
}

// isCtext reports whether r is an RFC 5322 ctext character.
func isCtext(r byte) bool {
	// Printable US-ASCII, excluding parentheses and backslash.
	if r == '(' || r == ')' || r == '\\' {
		return false
	}
	return isVchar(r)
}

// isDtext reports whether r is an RFC 5322 dtext character.
func isDtext(r byte) bool {
	// Printable US-ASCII, excluding "[", "]", or "\".
	if r == '[' || r == ']' || r == '\\' {
		return false
	}
	return isVchar(r)
}

// isObsDtext reports whether r may appear unescaped inside an obsolete
// domain literal.
func isObsDtext(r byte) bool {
	return r != ']' && r != '\\'
}

// isVchar reports whether r is an RFC 5322 VCHAR character.
func isVchar(r byte) bool {
	// Visible (printing) characters.
	return '!' <= r && r <= '~' || r >= 0x80
}

// isWSP reports whether r is a WSP (white space).
// WSP is a space or horizontal tab (RFC 5234 Appendix B).
func isWSP(r byte) bool {
	return r == ' ' || r == '\t'
}

// isObsNoWSCtl reports whether r is an RFC 5322 obs-NO-WS-CTL character:
// US-ASCII control characters that include neither carriage return,
// line feed, nor white space.
func isObsNoWSCtl(r byte) bool {
	return 1 <= r && r <= 8 || r == 11 || r == 12 || 14 <= r && r <= 31 || r == 127
}

// isLabelChar reports whether r may appear in a domain label other than
// as an interior hyphen.
func isLabelChar(r byte) bool {
	return 'A' <= r && r <= 'Z' || 'a' <= r && r <= 'z' || '0' <= r && r <= '9' || r >= 0x80
}
