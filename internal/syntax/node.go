package syntax

import "strings"

// Node is a handle to one node of a Tree. The zero Node is the null node:
// every accessor on it returns a zero value and navigation yields null
// nodes again.
type Node struct {
	tree *Tree
	id   NodeID
}

func (n Node) IsNull() bool {
	return n.tree == nil
}

func (n Node) ID() NodeID {
	if n.tree == nil {
		return none
	}
	return n.id
}

func (n Node) Tree() *Tree {
	return n.tree
}

func (n Node) Kind() Kind {
	if n.tree == nil {
		return KindOther
	}
	return n.tree.nodes[n.id].kind
}

// Is reports whether the node is non-null and has one of the given kinds.
func (n Node) Is(kinds ...Kind) bool {
	if n.tree == nil {
		return false
	}
	k := n.Kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (n Node) StartIndex() int {
	if n.tree == nil {
		return 0
	}
	return n.tree.nodes[n.id].start
}

func (n Node) EndIndex() int {
	if n.tree == nil {
		return 0
	}
	return n.tree.nodes[n.id].end
}

func (n Node) StartPoint() Point {
	if n.tree == nil {
		return Point{}
	}
	return n.tree.nodes[n.id].startPoint
}

func (n Node) EndPoint() Point {
	if n.tree == nil {
		return Point{}
	}
	return n.tree.nodes[n.id].endPoint
}

// Text returns the source covered by the node.
func (n Node) Text() string {
	if n.tree == nil {
		return ""
	}
	start, end := n.StartIndex(), n.EndIndex()
	text := n.tree.text
	if start > len(text) || end > len(text) || start > end {
		return ""
	}
	return text[start:end]
}

func (n Node) Parent() Node {
	if n.tree == nil {
		return Node{}
	}
	return n.tree.Node(n.tree.parents[n.id])
}

func (n Node) ChildCount() int {
	if n.tree == nil {
		return 0
	}
	return len(n.tree.children[n.id])
}

func (n Node) Child(i int) Node {
	if n.tree == nil {
		return Node{}
	}
	children := n.tree.children[n.id]
	if i < 0 || i >= len(children) {
		return Node{}
	}
	return Node{tree: n.tree, id: children[i]}
}

func (n Node) Children() []Node {
	out := make([]Node, n.ChildCount())
	for i := range out {
		out[i] = n.Child(i)
	}
	return out
}

func (n Node) FirstChild() Node {
	return n.Child(0)
}

func (n Node) LastChild() Node {
	return n.Child(n.ChildCount() - 1)
}

// index returns the position of n among its parent's children.
func (n Node) index() int {
	parent := n.Parent()
	if parent.IsNull() {
		return -1
	}
	for i, id := range n.tree.children[parent.id] {
		if id == n.id {
			return i
		}
	}
	return -1
}

func (n Node) PrevSibling() Node {
	i := n.index()
	if i < 0 {
		return Node{}
	}
	return n.Parent().Child(i - 1)
}

func (n Node) NextSibling() Node {
	i := n.index()
	if i < 0 {
		return Node{}
	}
	return n.Parent().Child(i + 1)
}

// DescendantsOfKind returns every descendant of the given kind in document
// order. The node itself is not included.
func (n Node) DescendantsOfKind(kind Kind) []Node {
	var out []Node
	n.walk(func(d Node) {
		if d.Kind() == kind {
			out = append(out, d)
		}
	})
	return out
}

// FirstDescendantOfKind is DescendantsOfKind(kind)[0], or the null node.
func (n Node) FirstDescendantOfKind(kind Kind) Node {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.Kind() == kind {
			return c
		}
		if d := c.FirstDescendantOfKind(kind); !d.IsNull() {
			return d
		}
	}
	return Node{}
}

func (n Node) walk(visit func(Node)) {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		visit(c)
		c.walk(visit)
	}
}

// DescendantForIndex returns the deepest node containing offset. At each
// level it descends into the first child with start <= offset < end, so a
// child starting at offset wins over a sibling ending there. When no child
// qualifies the current node is returned.
func (n Node) DescendantForIndex(offset int) Node {
	if n.tree == nil {
		return n
	}
	node := n
	for {
		next := Node{}
		for i := 0; i < node.ChildCount(); i++ {
			c := node.Child(i)
			if c.EndIndex() <= offset {
				continue
			}
			if c.StartIndex() > offset {
				break
			}
			next = c
			break
		}
		if next.IsNull() {
			return node
		}
		node = next
	}
}

// FirstChildForIndex returns the first child that ends after offset.
func (n Node) FirstChildForIndex(offset int) Node {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.EndIndex() > offset {
			return c
		}
	}
	return Node{}
}

// String renders the named nodes under n as an S-expression.
func (n Node) String() string {
	if n.tree == nil {
		return ""
	}
	var sb strings.Builder
	writeSexp(&sb, n)
	return sb.String()
}
