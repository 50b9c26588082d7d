package peg

import (
	"fmt"
	"strings"
)

type literal struct {
	s string
}

// Lit matches the literal string s.
func Lit(s string) Expr {
	return &literal{s: s}
}

func (e *literal) match(st *state, pos int) (int, []*Node, bool) {
	if strings.HasPrefix(st.input[pos:], e.s) {
		return pos + len(e.s), nil, true
	}
	return pos, nil, false
}

func (e *literal) bind(*Grammar) error {
	if e.s == "" {
		return fmt.Errorf("empty literal")
	}
	return nil
}

type class struct {
	pred func(byte) bool
}

// Class matches a single byte for which pred returns true.
func Class(pred func(byte) bool) Expr {
	return &class{pred: pred}
}

// Char matches any one of the given bytes.
func Char(cs ...byte) Expr {
	var set [256]bool
	for _, c := range cs {
		set[c] = true
	}
	return &class{pred: func(c byte) bool { return set[c] }}
}

func (e *class) match(st *state, pos int) (int, []*Node, bool) {
	if pos < len(st.input) && e.pred(st.input[pos]) {
		return pos + 1, nil, true
	}
	return pos, nil, false
}

func (e *class) bind(*Grammar) error {
	if e.pred == nil {
		return fmt.Errorf("character class without predicate")
	}
	return nil
}

type sequence struct {
	exprs []Expr
}

// Seq matches each expression in turn.
func Seq(exprs ...Expr) Expr {
	return &sequence{exprs: exprs}
}

func (e *sequence) match(st *state, pos int) (int, []*Node, bool) {
	var acc []*Node
	p := pos
	for _, x := range e.exprs {
		end, nodes, ok := x.match(st, p)
		if !ok {
			return pos, nil, false
		}
		acc = append(acc, nodes...)
		p = end
	}
	return p, acc, true
}

func (e *sequence) bind(g *Grammar) error {
	return bindAll(g, e.exprs)
}

type choice struct {
	exprs []Expr
}

// Choice tries each expression in order and commits to the first that matches.
func Choice(exprs ...Expr) Expr {
	return &choice{exprs: exprs}
}

func (e *choice) match(st *state, pos int) (int, []*Node, bool) {
	for _, x := range e.exprs {
		if end, nodes, ok := x.match(st, pos); ok {
			return end, nodes, true
		}
		if st.tooDeep {
			break
		}
	}
	return pos, nil, false
}

func (e *choice) bind(g *Grammar) error {
	return bindAll(g, e.exprs)
}

type repetition struct {
	expr Expr
	min  int
}

// Opt matches e or nothing.
func Opt(e Expr) Expr {
	return Choice(e, empty{})
}

// Star matches e zero or more times, greedily.
func Star(e Expr) Expr {
	return &repetition{expr: e, min: 0}
}

// Plus matches e one or more times, greedily.
func Plus(e Expr) Expr {
	return &repetition{expr: e, min: 1}
}

func (e *repetition) match(st *state, pos int) (int, []*Node, bool) {
	var acc []*Node
	p := pos
	n := 0
	for {
		end, nodes, ok := e.expr.match(st, p)
		if !ok {
			break
		}
		acc = append(acc, nodes...)
		n++
		if end == p {
			// zero-width iteration; going on would loop forever
			break
		}
		p = end
	}
	if n < e.min {
		return pos, nil, false
	}
	return p, acc, true
}

func (e *repetition) bind(g *Grammar) error {
	return e.expr.bind(g)
}

type reference struct {
	name string
	r    *rule
}

// Ref refers to the named rule of the grammar the expression is compiled into.
func Ref(name string) Expr {
	return &reference{name: name}
}

func (e *reference) match(st *state, pos int) (int, []*Node, bool) {
	return st.invoke(e.r, pos)
}

func (e *reference) bind(g *Grammar) error {
	r, ok := g.byName[e.name]
	if !ok {
		return fmt.Errorf("undefined rule %q", e.name)
	}
	if e.r != nil && e.r != r {
		return fmt.Errorf("rule reference %q is already bound to another grammar", e.name)
	}
	e.r = r
	return nil
}

type endOfInput struct{}

// EOI matches only at the end of the input.
func EOI() Expr {
	return endOfInput{}
}

func (endOfInput) match(st *state, pos int) (int, []*Node, bool) {
	return pos, nil, pos == len(st.input)
}

func (endOfInput) bind(*Grammar) error { return nil }

type empty struct{}

func (empty) match(_ *state, pos int) (int, []*Node, bool) {
	return pos, nil, true
}

func (empty) bind(*Grammar) error { return nil }

func bindAll(g *Grammar, exprs []Expr) error {
	if len(exprs) == 0 {
		return fmt.Errorf("empty expression list")
	}
	for _, x := range exprs {
		if x == nil {
			return fmt.Errorf("nil expression")
		}
		if err := x.bind(g); err != nil {
			return err
		}
	}
	return nil
}
