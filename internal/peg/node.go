package peg

// Node is a span of the input matched by a named rule.
// Start and End are byte offsets; Children are the nodes of the named
// sub-rules that took part in the match, in input order.
type Node struct {
	Rule     string
	Start    int
	End      int
	Children []*Node
}

// Text returns the span of input covered by n.
func (n *Node) Text(input string) string {
	return input[n.Start:n.End]
}

// Child returns the first direct child produced by one of the given rules.
func (n *Node) Child(rules ...string) *Node {
	for _, c := range n.Children {
		for _, r := range rules {
			if c.Rule == r {
				return c
			}
		}
	}
	return nil
}

// Walk calls fn for n and each of its descendants in depth-first order.
// Returning false from fn skips the descendants of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
