// Package peg implements a small parsing expression grammar engine.
//
// A grammar is declared as a list of named rules built from combinators
// (Lit, Class, Seq, Choice, ...). Matching a rule against an input yields a
// tree of Nodes, one per named rule that participated in the match, each
// recording the byte span it consumed.
package peg

import (
	"fmt"
)

// DefaultMaxDepth bounds the nesting of named rule invocations.
const DefaultMaxDepth = 256

// Expr is a parsing expression.
type Expr interface {
	match(st *state, pos int) (int, []*Node, bool)
	bind(g *Grammar) error
}

// RuleDef declares a named rule.
type RuleDef struct {
	Name   string
	Expr   Expr
	Silent bool
}

// Rule declares a rule that produces a Node when it matches.
func Rule(name string, e Expr) RuleDef {
	return RuleDef{Name: name, Expr: e}
}

// SilentRule declares a rule that does not produce a Node of its own;
// the nodes of its sub-rules are handed to the enclosing rule.
func SilentRule(name string, e Expr) RuleDef {
	return RuleDef{Name: name, Expr: e, Silent: true}
}

// Rules is an ordered list of rule declarations.
type Rules []RuleDef

type rule struct {
	id     int
	name   string
	expr   Expr
	silent bool
}

// Grammar is a compiled, immutable set of rules.
// It is safe for concurrent use.
type Grammar struct {
	rules    []*rule
	byName   map[string]*rule
	maxDepth int
}

type OptionFunc func(g *Grammar) error

// WithMaxDepth sets the maximum nesting of named rule invocations.
// Inputs that need a deeper nesting are rejected.
func WithMaxDepth(n int) OptionFunc {
	return func(g *Grammar) error {
		if n <= 0 {
			return fmt.Errorf("max depth must be positive, got %d", n)
		}
		g.maxDepth = n
		return nil
	}
}

// Compile resolves rule references and returns the grammar.
func Compile(defs Rules, options ...OptionFunc) (*Grammar, error) {
	g := &Grammar{
		rules:    make([]*rule, 0, len(defs)),
		byName:   make(map[string]*rule, len(defs)),
		maxDepth: DefaultMaxDepth,
	}
	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("rule #%d has no name", len(g.rules))
		}
		if def.Expr == nil {
			return nil, fmt.Errorf("rule %q has no expression", def.Name)
		}
		if _, ok := g.byName[def.Name]; ok {
			return nil, fmt.Errorf("duplicate rule %q", def.Name)
		}
		r := &rule{
			id:     len(g.rules),
			name:   def.Name,
			expr:   def.Expr,
			silent: def.Silent,
		}
		g.rules = append(g.rules, r)
		g.byName[def.Name] = r
	}
	for _, r := range g.rules {
		if err := r.expr.bind(g); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.name, err)
		}
	}
	return g, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(defs Rules, options ...OptionFunc) *Grammar {
	g, err := Compile(defs, options...)
	if err != nil {
		panic("peg: " + err.Error())
	}
	return g
}

// Match matches the named rule against the whole of input.
// A match that leaves input unconsumed is a failure.
// The returned node is the root of the parse tree; for a silent rule it is
// a synthetic node spanning the input whose children are the rule's nodes.
func (g *Grammar) Match(name string, input string) (*Node, bool) {
	r, ok := g.byName[name]
	if !ok {
		panic(fmt.Sprintf("peg: no such rule %q", name))
	}
	st := &state{
		g:     g,
		input: input,
		memo:  make(map[int]memoEntry),
	}
	end, nodes, ok := st.invoke(r, 0)
	if !ok || st.tooDeep || end != len(input) {
		return nil, false
	}
	if len(nodes) == 1 && nodes[0].Rule == name {
		return nodes[0], true
	}
	return &Node{Rule: name, Start: 0, End: end, Children: nodes}, true
}

type memoEntry struct {
	end   int
	nodes []*Node
	ok    bool
}

type state struct {
	g       *Grammar
	input   string
	memo    map[int]memoEntry
	depth   int
	tooDeep bool
}

func (st *state) invoke(r *rule, pos int) (int, []*Node, bool) {
	if st.tooDeep {
		return pos, nil, false
	}
	// only named rules are memoized
	key := pos*len(st.g.rules) + r.id
	if !r.silent {
		if e, ok := st.memo[key]; ok {
			return e.end, e.nodes, e.ok
		}
	}
	if st.depth >= st.g.maxDepth {
		st.tooDeep = true
		return pos, nil, false
	}
	st.depth++
	end, children, ok := r.expr.match(st, pos)
	st.depth--
	if st.tooDeep {
		return pos, nil, false
	}
	if r.silent {
		if !ok {
			return pos, nil, false
		}
		return end, children, true
	}
	var nodes []*Node
	if ok {
		nodes = []*Node{{Rule: r.name, Start: pos, End: end, Children: children}}
	} else {
		end = pos
	}
	st.memo[key] = memoEntry{end: end, nodes: nodes, ok: ok}
	return end, nodes, ok
}
