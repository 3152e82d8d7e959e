package syntax

import "surface/internal/position"

// Builder assembles a Tree in document order. Parsers open a node, emit its
// children, then close it with its final kind.
type Builder struct {
	tree  *Tree
	index *position.Index
	stack []NodeID
}

// NewBuilder starts a tree for text whose root spans the whole text.
func NewBuilder(text string) *Builder {
	b := &Builder{
		tree:  &Tree{text: text},
		index: position.NewIndex(text),
	}
	b.stack = append(b.stack, b.add(KindFragment, 0, len(text), none))
	return b
}

func (b *Builder) add(kind Kind, start, end int, parent NodeID) NodeID {
	id := NodeID(len(b.tree.nodes))
	b.tree.nodes = append(b.tree.nodes, span{
		kind:       kind,
		start:      start,
		end:        end,
		startPoint: b.index.Point(start),
		endPoint:   b.index.Point(end),
	})
	b.tree.parents = append(b.tree.parents, parent)
	b.tree.children = append(b.tree.children, nil)
	if parent != none {
		b.tree.children[parent] = append(b.tree.children[parent], id)
	}
	return id
}

func (b *Builder) current() NodeID {
	return b.stack[len(b.stack)-1]
}

// Open starts a node at start under the innermost open node.
func (b *Builder) Open(start int) NodeID {
	id := b.add(KindOther, start, start, b.current())
	b.stack = append(b.stack, id)
	return id
}

// Close finishes the innermost open node.
func (b *Builder) Close(kind Kind, end int) NodeID {
	id := b.current()
	b.stack = b.stack[:len(b.stack)-1]
	n := &b.tree.nodes[id]
	n.kind = kind
	n.end = end
	n.endPoint = b.index.Point(end)
	return id
}

// Extent returns where the innermost open node currently ends: the end of its
// last child, or its start when it has none.
func (b *Builder) Extent() int {
	id := b.current()
	children := b.tree.children[id]
	if len(children) == 0 {
		return b.tree.nodes[id].start
	}
	return b.tree.nodes[children[len(children)-1]].end
}

// Leaf adds a childless node under the innermost open node.
func (b *Builder) Leaf(kind Kind, start, end int) NodeID {
	return b.add(kind, start, end, b.current())
}

// Adopt copies a subtree from another tree under the innermost open node.
// The subtree must cover the same text in both trees.
func (b *Builder) Adopt(n Node) NodeID {
	return b.adopt(n, b.current())
}

func (b *Builder) adopt(n Node, parent NodeID) NodeID {
	id := b.add(n.Kind(), n.StartIndex(), n.EndIndex(), parent)
	for i := 0; i < n.ChildCount(); i++ {
		b.adopt(n.Child(i), id)
	}
	return id
}

// Finish closes any nodes left open at the end of the text and returns the
// tree.
func (b *Builder) Finish() *Tree {
	for len(b.stack) > 1 {
		b.Close(KindError, len(b.tree.text))
	}
	return b.tree
}
