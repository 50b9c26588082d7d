// Package address holds the RFC 5322 addr-spec grammar.
//
// The grammar comes in two parallel rule trees: the current syntax
// (RFC 5322 section 3.4.1) and the obsolete syntax (section 4.4) that
// historical mail systems emit. Rules of the obsolete tree carry the same
// names as their current counterparts with an "_obs" suffix, and each of them
// accepts a superset of what its counterpart accepts.
package address

import (
	"github.com/moriyoshi/addrspec/internal/peg"
)

// Rule names.
const (
	FWS           = "fws"
	CFWS          = "cfws"
	QuotedPair    = "quoted_pair"
	Comment       = "comment"
	DotAtomText   = "dot_atom_text"
	DotAtom       = "dot_atom"
	QuotedString  = "quoted_string"
	LocalPart     = "local_part"
	Label         = "label"
	DomainName    = "domain_name"
	DomainLiteral = "domain_literal"
	Domain        = "domain"
	AddrSpec      = "addr_spec"
	AddressSingle = "address_single"

	FWSObs           = "fws_obs"
	CFWSObs          = "cfws_obs"
	QuotedPairObs    = "quoted_pair_obs"
	CommentObs       = "comment_obs"
	AtomObs          = "atom_obs"
	QuotedStringObs  = "quoted_string_obs"
	WordObs          = "word_obs"
	LocalPartObs     = "local_part_obs"
	DomainAtomObs    = "domain_atom_obs"
	DomainNameObs    = "domain_name_obs"
	DomainLiteralObs = "domain_literal_obs"
	DomainObs        = "domain_obs"
	AddrSpecObs      = "addr_spec_obs"
	AddressSingleObs = "address_single_obs"
)

// MaxDepth bounds the nesting of rule invocations, which in practice bounds
// the nesting of comments to a little over a hundred levels.
const MaxDepth = 128

var (
	wsp        = peg.Class(isWSP)
	crlf       = peg.Lit("\r\n")
	dquote     = peg.Lit(`"`)
	backslash  = peg.Lit(`\`)
	dot        = peg.Lit(".")
	atext      = peg.Class(isAtext)
	qtext      = peg.Class(isQtext)
	ctext      = peg.Class(isCtext)
	dtext      = peg.Class(isDtext)
	vchar      = peg.Class(isVchar)
	obsNoWSCtl = peg.Class(isObsNoWSCtl)
	obsDtext   = peg.Class(isObsDtext)
	labelChar  = peg.Class(isLabelChar)
)

// label = 1*alnum *(1*"-" 1*alnum)
//
// A label neither starts nor ends with a hyphen; runs of interior hyphens
// are fine, so A-labels such as "xn--bcher-kva" pass as opaque text.
var label = peg.Seq(
	peg.Plus(labelChar),
	peg.Star(peg.Seq(peg.Plus(peg.Lit("-")), peg.Plus(labelChar))),
)

var currentRules = peg.Rules{
	// FWS = ([*WSP CRLF] 1*WSP)
	peg.SilentRule(FWS, peg.Choice(
		peg.Seq(peg.Star(wsp), crlf, peg.Plus(wsp)),
		peg.Plus(wsp),
	)),
	// quoted-pair = "\" (VCHAR / WSP)
	peg.Rule(QuotedPair, peg.Seq(backslash, peg.Choice(vchar, wsp))),
	// comment = "(" *([FWS] ccontent) [FWS] ")"
	// ccontent = ctext / quoted-pair / comment
	peg.Rule(Comment, peg.Seq(
		peg.Lit("("),
		peg.Star(peg.Seq(
			peg.Opt(peg.Ref(FWS)),
			peg.Choice(ctext, peg.Ref(QuotedPair), peg.Ref(Comment)),
		)),
		peg.Opt(peg.Ref(FWS)),
		peg.Lit(")"),
	)),
	// CFWS = (1*([FWS] comment) [FWS]) / FWS
	peg.SilentRule(CFWS, peg.Choice(
		peg.Seq(
			peg.Plus(peg.Seq(peg.Opt(peg.Ref(FWS)), peg.Ref(Comment))),
			peg.Opt(peg.Ref(FWS)),
		),
		peg.Ref(FWS),
	)),
	// dot-atom-text = 1*atext *("." 1*atext)
	peg.Rule(DotAtomText, peg.Seq(
		peg.Plus(atext),
		peg.Star(peg.Seq(dot, peg.Plus(atext))),
	)),
	// dot-atom = [CFWS] dot-atom-text [CFWS]
	peg.Rule(DotAtom, peg.Seq(
		peg.Opt(peg.Ref(CFWS)),
		peg.Ref(DotAtomText),
		peg.Opt(peg.Ref(CFWS)),
	)),
	// quoted-string = [CFWS] DQUOTE *([FWS] qcontent) [FWS] DQUOTE [CFWS]
	// qcontent = qtext / quoted-pair
	peg.Rule(QuotedString, peg.Seq(
		peg.Opt(peg.Ref(CFWS)),
		dquote,
		peg.Star(peg.Seq(
			peg.Opt(peg.Ref(FWS)),
			peg.Choice(qtext, peg.Ref(QuotedPair)),
		)),
		peg.Opt(peg.Ref(FWS)),
		dquote,
		peg.Opt(peg.Ref(CFWS)),
	)),
	// local-part = dot-atom / quoted-string
	peg.Rule(LocalPart, peg.Choice(peg.Ref(DotAtom), peg.Ref(QuotedString))),
	peg.Rule(Label, label),
	// domain-name = [CFWS] label *("." label) [CFWS]
	peg.Rule(DomainName, peg.Seq(
		peg.Opt(peg.Ref(CFWS)),
		peg.Ref(Label),
		peg.Star(peg.Seq(dot, peg.Ref(Label))),
		peg.Opt(peg.Ref(CFWS)),
	)),
	// domain-literal = [CFWS] "[" *([FWS] dtext) [FWS] "]" [CFWS]
	peg.Rule(DomainLiteral, peg.Seq(
		peg.Opt(peg.Ref(CFWS)),
		peg.Lit("["),
		peg.Star(peg.Seq(peg.Opt(peg.Ref(FWS)), dtext)),
		peg.Opt(peg.Ref(FWS)),
		peg.Lit("]"),
		peg.Opt(peg.Ref(CFWS)),
	)),
	// domain = domain-name / domain-literal
	peg.Rule(Domain, peg.Choice(peg.Ref(DomainLiteral), peg.Ref(DomainName))),
	// addr-spec = local-part "@" domain
	peg.Rule(AddrSpec, peg.Seq(peg.Ref(LocalPart), peg.Lit("@"), peg.Ref(Domain))),
	peg.Rule(AddressSingle, peg.Seq(peg.Ref(AddrSpec), peg.EOI())),
}

var obsoleteRules = peg.Rules{
	// obs-FWS: any run of WSP and CRLF; unlike FWS a line break need not
	// be followed by white space
	peg.SilentRule(FWSObs, peg.Plus(peg.Choice(crlf, wsp))),
	// obs-qp = "\" (%d0 / obs-NO-WS-CTL / LF / CR)
	peg.Rule(QuotedPairObs, peg.Seq(
		backslash,
		peg.Choice(vchar, wsp, peg.Char(0, '\n', '\r'), obsNoWSCtl),
	)),
	// obs-ctext = obs-NO-WS-CTL
	peg.Rule(CommentObs, peg.Seq(
		peg.Lit("("),
		peg.Star(peg.Seq(
			peg.Opt(peg.Ref(FWSObs)),
			peg.Choice(ctext, obsNoWSCtl, peg.Ref(QuotedPairObs), peg.Ref(CommentObs)),
		)),
		peg.Opt(peg.Ref(FWSObs)),
		peg.Lit(")"),
	)),
	peg.SilentRule(CFWSObs, peg.Choice(
		peg.Seq(
			peg.Plus(peg.Seq(peg.Opt(peg.Ref(FWSObs)), peg.Ref(CommentObs))),
			peg.Opt(peg.Ref(FWSObs)),
		),
		peg.Ref(FWSObs),
	)),
	// atom = [CFWS] 1*atext [CFWS]
	peg.Rule(AtomObs, peg.Seq(
		peg.Opt(peg.Ref(CFWSObs)),
		peg.Plus(atext),
		peg.Opt(peg.Ref(CFWSObs)),
	)),
	// obs-qtext = obs-NO-WS-CTL
	peg.Rule(QuotedStringObs, peg.Seq(
		peg.Opt(peg.Ref(CFWSObs)),
		dquote,
		peg.Star(peg.Seq(
			peg.Opt(peg.Ref(FWSObs)),
			peg.Choice(qtext, obsNoWSCtl, peg.Ref(QuotedPairObs)),
		)),
		peg.Opt(peg.Ref(FWSObs)),
		dquote,
		peg.Opt(peg.Ref(CFWSObs)),
	)),
	// word = atom / quoted-string
	peg.Rule(WordObs, peg.Choice(peg.Ref(AtomObs), peg.Ref(QuotedStringObs))),
	// obs-local-part = word *("." word)
	peg.Rule(LocalPartObs, peg.Seq(
		peg.Ref(WordObs),
		peg.Star(peg.Seq(dot, peg.Ref(WordObs))),
	)),
	peg.Rule(DomainAtomObs, peg.Seq(
		peg.Opt(peg.Ref(CFWSObs)),
		peg.Ref(Label),
		peg.Opt(peg.Ref(CFWSObs)),
	)),
	// obs-domain = atom *("." atom)
	peg.Rule(DomainNameObs, peg.Seq(
		peg.Ref(DomainAtomObs),
		peg.Star(peg.Seq(dot, peg.Ref(DomainAtomObs))),
	)),
	// The interior takes any byte but an unescaped "]" or "\", which
	// covers obs-dtext (obs-NO-WS-CTL / quoted-pair) as well as NUL and a
	// stray "[".
	peg.Rule(DomainLiteralObs, peg.Seq(
		peg.Opt(peg.Ref(CFWSObs)),
		peg.Lit("["),
		peg.Star(peg.Seq(
			peg.Opt(peg.Ref(FWSObs)),
			peg.Choice(obsDtext, peg.Ref(QuotedPairObs)),
		)),
		peg.Opt(peg.Ref(FWSObs)),
		peg.Lit("]"),
		peg.Opt(peg.Ref(CFWSObs)),
	)),
	peg.Rule(DomainObs, peg.Choice(peg.Ref(DomainLiteralObs), peg.Ref(DomainNameObs))),
	peg.Rule(AddrSpecObs, peg.Seq(peg.Ref(LocalPartObs), peg.Lit("@"), peg.Ref(DomainObs))),
	peg.Rule(AddressSingleObs, peg.Seq(peg.Ref(AddrSpecObs), peg.EOI())),
}

// Grammar is the compiled rule set holding both rule trees.
var Grammar = peg.MustCompile(append(append(peg.Rules{}, currentRules...), obsoleteRules...), peg.WithMaxDepth(MaxDepth))

// Match matches the named rule against the whole of input.
func Match(rule string, input string) (*peg.Node, bool) {
	return Grammar.Match(rule, input)
}
