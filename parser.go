package addrspec

import (
	"fmt"
	"unicode/utf8"

	"github.com/moriyoshi/addrspec/internal/peg"
	"github.com/moriyoshi/addrspec/internal/rfc5322/address"
)

// A Parser is an RFC 5322 addr-spec parser. The zero value parses
// permissively.
type Parser struct {
	// Strict disables the fallback to the obsolete syntax.
	Strict bool
}

var (
	permissiveParser = &Parser{}
	strictParser     = &Parser{Strict: true}
)

// Parse parses s as an addr-spec. The second return value is false if s does
// not conform to the grammar; no reason is given.
func (p *Parser) Parse(s string) (*Address, bool) {
	if !utf8.ValidString(s) {
		return nil, false
	}
	if root, ok := address.Match(address.AddressSingle, s); ok {
		return extract(root, s, false), true
	}
	if p.Strict {
		return nil, false
	}
	if root, ok := address.Match(address.AddressSingleObs, s); ok {
		return extract(root, s, true), true
	}
	return nil, false
}

// ParseBytes is like Parse but takes a byte slice.
func (p *Parser) ParseBytes(b []byte) (*Address, bool) {
	return p.Parse(string(b))
}

// Parse parses s permissively, falling back to the obsolete syntax.
func Parse(s string) (*Address, bool) {
	return permissiveParser.Parse(s)
}

// ParseBytes parses b permissively.
func ParseBytes(b []byte) (*Address, bool) {
	return permissiveParser.ParseBytes(b)
}

// ParseStrict parses s accepting the current syntax only.
func ParseStrict(s string) (*Address, bool) {
	return strictParser.Parse(s)
}

type ruleNames struct {
	addrSpec  string
	localPart string
	domain    string
}

var (
	currentNames  = ruleNames{address.AddrSpec, address.LocalPart, address.Domain}
	obsoleteNames = ruleNames{address.AddrSpecObs, address.LocalPartObs, address.DomainObs}
)

// extract pulls the local part and domain out of a successful match of
// address_single or address_single_obs. A tree without them means the
// grammar and this function disagree, which is a bug.
func extract(root *peg.Node, input string, obsolete bool) *Address {
	rules := currentNames
	if obsolete {
		rules = obsoleteNames
	}
	var node *peg.Node
	root.Walk(func(n *peg.Node) bool {
		if node != nil {
			return false
		}
		if n.Rule == rules.addrSpec {
			node = n
			return false
		}
		return true
	})
	if node == nil {
		panic(fmt.Sprintf("addrspec: %s matched without %s", root.Rule, rules.addrSpec))
	}
	localPart := node.Child(rules.localPart)
	domain := node.Child(rules.domain)
	if localPart == nil || domain == nil {
		panic(fmt.Sprintf("addrspec: %s matched without %s or %s", rules.addrSpec, rules.localPart, rules.domain))
	}
	return &Address{
		localPart: localPart.Text(input),
		domain:    domain.Text(input),
		obsolete:  obsolete,
	}
}
