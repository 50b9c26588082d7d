package peg

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func listGrammar(t *testing.T) *Grammar {
	g, err := Compile(Rules{
		Rule("list", Seq(Ref("item"), Star(Seq(Ref("sep"), Ref("item"))), EOI())),
		SilentRule("sep", Seq(Star(Lit(" ")), Lit(","), Star(Lit(" ")))),
		Rule("item", Choice(Ref("number"), Ref("group"))),
		Rule("number", Plus(Class(isDigit))),
		Rule("group", Seq(Lit("("), Opt(Ref("list_inner")), Lit(")"))),
		Rule("list_inner", Seq(Ref("item"), Star(Seq(Ref("sep"), Ref("item"))))),
	})
	require.NoError(t, err)
	return g
}

func TestMatch(t *testing.T) {
	t.Parallel()
	g := listGrammar(t)

	cases := []struct {
		input string
		ok    bool
	}{
		0:  {"1", true},
		1:  {"1,2", true},
		2:  {"1 , 2,  3", true},
		3:  {"()", true},
		4:  {"(1,(2,3)),4", true},
		5:  {"", false},
		6:  {"1,", false},
		7:  {"1 2", false},
		8:  {"(1", false},
		9:  {"a", false},
		10: {"1)", false},
	}
	for i, c := range cases {
		_, ok := g.Match("list", c.input)
		assert.Equal(t, c.ok, ok, "#%d: %q", i, c.input)
	}
}

func TestMatchIsAnchored(t *testing.T) {
	t.Parallel()
	g, err := Compile(Rules{
		Rule("digits", Plus(Class(isDigit))),
	})
	require.NoError(t, err)

	_, ok := g.Match("digits", "123")
	assert.True(t, ok)
	_, ok = g.Match("digits", "123x")
	assert.False(t, ok)
	_, ok = g.Match("digits", "x123")
	assert.False(t, ok)
}

func TestParseTree(t *testing.T) {
	t.Parallel()
	g := listGrammar(t)

	input := "12, (3)"
	root, ok := g.Match("list", input)
	require.True(t, ok)
	assert.Equal(t, "list", root.Rule)
	assert.Equal(t, 0, root.Start)
	assert.Equal(t, len(input), root.End)

	// the silent separator leaves no node behind
	require.Len(t, root.Children, 2)
	first, second := root.Children[0], root.Children[1]
	assert.Equal(t, "item", first.Rule)
	assert.Equal(t, "12", first.Text(input))
	assert.Equal(t, "item", second.Rule)
	assert.Equal(t, "(3)", second.Text(input))

	group := second.Child("group")
	require.NotNil(t, group)
	inner := group.Child("list_inner")
	require.NotNil(t, inner)
	assert.Equal(t, "3", inner.Text(input))
	assert.Nil(t, group.Child("number"))

	var rules []string
	root.Walk(func(n *Node) bool {
		rules = append(rules, n.Rule)
		return n.Rule != "group"
	})
	assert.Equal(t, []string{"list", "item", "number", "item", "group"}, rules)
}

func TestSilentTopRule(t *testing.T) {
	t.Parallel()
	g, err := Compile(Rules{
		SilentRule("pair", Seq(Ref("a"), Ref("b"))),
		Rule("a", Lit("a")),
		Rule("b", Lit("b")),
	})
	require.NoError(t, err)

	root, ok := g.Match("pair", "ab")
	require.True(t, ok)
	assert.Equal(t, "pair", root.Rule)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "a", root.Children[0].Rule)
	assert.Equal(t, "b", root.Children[1].Rule)
}

func TestChoiceIsOrdered(t *testing.T) {
	t.Parallel()
	g, err := Compile(Rules{
		// "a" wins over "ab"; the anchored match then fails on "ab"
		Rule("short_first", Choice(Lit("a"), Lit("ab"))),
		Rule("long_first", Choice(Lit("ab"), Lit("a"))),
	})
	require.NoError(t, err)

	_, ok := g.Match("short_first", "ab")
	assert.False(t, ok)
	_, ok = g.Match("long_first", "ab")
	assert.True(t, ok)
	_, ok = g.Match("long_first", "a")
	assert.True(t, ok)
}

func TestZeroWidthRepetition(t *testing.T) {
	t.Parallel()
	g, err := Compile(Rules{
		Rule("loop", Seq(Star(Opt(Lit("x"))), EOI())),
	})
	require.NoError(t, err)

	_, ok := g.Match("loop", "")
	assert.True(t, ok)
	_, ok = g.Match("loop", "xxx")
	assert.True(t, ok)
	_, ok = g.Match("loop", "xxy")
	assert.False(t, ok)
}

func TestMaxDepth(t *testing.T) {
	t.Parallel()
	defs := Rules{
		Rule("nest", Seq(Lit("("), Opt(Ref("nest")), Lit(")"))),
	}
	g, err := Compile(defs, WithMaxDepth(10))
	require.NoError(t, err)

	// n levels take n invocations plus one probe for a further level
	_, ok := g.Match("nest", strings.Repeat("(", 9)+strings.Repeat(")", 9))
	assert.True(t, ok)
	_, ok = g.Match("nest", strings.Repeat("(", 10)+strings.Repeat(")", 10))
	assert.False(t, ok)

	_, err = Compile(Rules{Rule("x", Lit("x"))}, WithMaxDepth(0))
	assert.Error(t, err)
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		defs Rules
	}{
		{"undefined", Rules{Rule("a", Ref("b"))}},
		{"duplicate", Rules{Rule("a", Lit("a")), Rule("a", Lit("b"))}},
		{"unnamed", Rules{Rule("", Lit("a"))}},
		{"nil expr", Rules{Rule("a", nil)}},
		{"empty literal", Rules{Rule("a", Lit(""))}},
		{"empty seq", Rules{Rule("a", Seq())}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Compile(c.defs)
			assert.Error(t, err)
		})
	}
	assert.Panics(t, func() { MustCompile(Rules{Rule("a", Ref("b"))}) })
}

func TestUnknownRulePanics(t *testing.T) {
	t.Parallel()
	g := listGrammar(t)
	assert.Panics(t, func() { g.Match("nope", "1") })
}

func TestBacktrackingStaysLinear(t *testing.T) {
	t.Parallel()
	// Each level tries its sub-level twice; without memoization the
	// match below would take 2^levels steps.
	const levels = 40
	defs := Rules{Rule("l0", Lit("x"))}
	for i := 1; i <= levels; i++ {
		sub := Ref(fmt.Sprintf("l%d", i-1))
		defs = append(defs, Rule(fmt.Sprintf("l%d", i), Choice(
			Seq(sub, Lit("a")),
			Seq(sub, Lit("b")),
		)))
	}
	g, err := Compile(defs)
	require.NoError(t, err)

	_, ok := g.Match(fmt.Sprintf("l%d", levels), "x"+strings.Repeat("b", levels))
	assert.True(t, ok)
	_, ok = g.Match(fmt.Sprintf("l%d", levels), "x"+strings.Repeat("b", levels-1)+"c")
	assert.False(t, ok)
}

func TestConcurrentMatch(t *testing.T) {
	t.Parallel()
	g := listGrammar(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, ok := g.Match("list", "(1,(2,3)),4")
				assert.True(t, ok)
				_, ok = g.Match("list", "(1,(2,3),4")
				assert.False(t, ok)
			}
		}()
	}
	wg.Wait()
}
