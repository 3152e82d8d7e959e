// Package syntax holds the concrete syntax tree shared by the parsers, the
// tree cache and the cursor resolver.
//
// A Tree is an arena: nodes are addressed by NodeID and relations live in
// separate parent and children tables, so a Node is a plain value that never
// owns anything.
package syntax

import (
	"strings"

	"surface/internal/position"
)

// NodeID addresses a node inside its tree's arena.
type NodeID int32

const (
	// Root is the id of every tree's root node.
	Root NodeID = 0

	none NodeID = -1
)

// Point is a row/column location with byte columns.
type Point = position.Point

// EditDelta is a single text change expressed in the coordinates of the text
// it was applied to.
type EditDelta = position.Delta

type span struct {
	kind       Kind
	start, end int
	startPoint Point
	endPoint   Point
}

// Tree is an immutable syntax tree for one snapshot of a document.
type Tree struct {
	text     string
	nodes    []span
	parents  []NodeID
	children [][]NodeID

	// set on trees produced by Edit
	base  *Tree
	edits []EditDelta
}

// Text returns the source the tree was parsed from. Edited trees keep the
// pre-edit text.
func (t *Tree) Text() string {
	return t.text
}

// Len is the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// RootNode returns the root of the tree.
func (t *Tree) RootNode() Node {
	if t == nil || len(t.nodes) == 0 {
		return Node{}
	}
	return Node{tree: t, id: Root}
}

// Node returns the node with the given id, or the null node.
func (t *Tree) Node(id NodeID) Node {
	if t == nil || id < 0 || int(id) >= len(t.nodes) {
		return Node{}
	}
	return Node{tree: t, id: id}
}

// Edited reports whether the tree was produced by Edit and only reflects
// adjusted spans, not a fresh parse.
func (t *Tree) Edited() bool {
	return t.base != nil
}

// Base returns the parsed tree an edited tree was derived from and the edits
// applied to it since, in order. For parsed trees it returns the tree itself
// and no edits.
func (t *Tree) Base() (*Tree, []EditDelta) {
	if t.base == nil {
		return t, nil
	}
	return t.base, t.edits
}

// Edit returns a copy of the tree whose node spans are adjusted for delta.
// Structure is shared with the receiver. Nodes starting or ending inside the
// replaced range collapse onto its new end; nodes after it shift.
func (t *Tree) Edit(delta EditDelta) *Tree {
	nodes := make([]span, len(t.nodes))
	for i, n := range t.nodes {
		n.start, n.startPoint = editOffset(n.start, n.startPoint, delta)
		n.end, n.endPoint = editOffset(n.end, n.endPoint, delta)
		nodes[i] = n
	}

	base, edits := t.Base()
	next := &Tree{
		text:     t.text,
		nodes:    nodes,
		parents:  t.parents,
		children: t.children,
		base:     base,
	}
	next.edits = append(append(make([]EditDelta, 0, len(edits)+1), edits...), delta)
	return next
}

func editOffset(offset int, point Point, d EditDelta) (int, Point) {
	switch {
	case offset >= d.OldEndIndex:
		return offset + d.NewEndIndex - d.OldEndIndex, d.Shift(point)
	case offset > d.StartIndex:
		return d.NewEndIndex, d.NewEndPoint
	}
	return offset, point
}

// String renders the named nodes of the tree as an S-expression.
func (t *Tree) String() string {
	return t.RootNode().String()
}

// Equal reports whether both trees have the same shape, kinds and spans.
func Equal(a, b *Tree) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalNodes(a.RootNode(), b.RootNode())
}

func equalNodes(a, b Node) bool {
	if a.Kind() != b.Kind() ||
		a.StartIndex() != b.StartIndex() || a.EndIndex() != b.EndIndex() ||
		a.StartPoint() != b.StartPoint() || a.EndPoint() != b.EndPoint() ||
		a.ChildCount() != b.ChildCount() {
		return false
	}
	for i := 0; i < a.ChildCount(); i++ {
		if !equalNodes(a.Child(i), b.Child(i)) {
			return false
		}
	}
	return true
}

func writeSexp(sb *strings.Builder, n Node) {
	sb.WriteByte('(')
	sb.WriteString(n.Kind().String())
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if !c.Kind().Named() {
			continue
		}
		sb.WriteByte(' ')
		writeSexp(sb, c)
	}
	sb.WriteByte(')')
}
