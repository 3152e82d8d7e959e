// Package sitteradapter runs tree-sitter grammars behind the syntax tree
// interface used by the rest of the server.
package sitteradapter

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"

	"surface/internal/syntax"
)

var log = commonlog.GetLogger("surface.sitteradapter")

// Kinds maps grammar node types onto syntax kinds. Types missing from the
// map are looked up by their own name, so a grammar using the Surface node
// names needs no map at all.
type Kinds map[string]syntax.Kind

// HTMLKinds adapts tree-sitter-html, whose raw-text elements and
// self-closing tags are folded into the Surface shapes.
var HTMLKinds = Kinds{
	"document":         syntax.KindFragment,
	"element":          syntax.KindTag,
	"style_element":    syntax.KindTag,
	"script_element":   syntax.KindTag,
	"self_closing_tag": syntax.KindStartTag,
	"raw_text":         syntax.KindText,
}

func (k Kinds) kind(n *sitter.Node) syntax.Kind {
	if n.IsError() {
		return syntax.KindError
	}
	if kind, ok := k[n.Type()]; ok {
		return kind
	}
	return syntax.ParseKind(n.Type())
}

// Parser wraps a tree-sitter parser and the tree it produced last, so the
// next parse of an edited copy can hand tree-sitter its old tree.
type Parser struct {
	mu     sync.Mutex
	parser *sitter.Parser
	kinds  Kinds

	last *syntax.Tree
	tree *sitter.Tree
}

func NewParser(language *sitter.Language, kinds Kinds) *Parser {
	p := sitter.NewParser()
	p.SetLanguage(language)
	return &Parser{parser: p, kinds: kinds}
}

// Parse builds the tree for text. previous is reused when it was derived from
// the last tree this parser returned.
func (p *Parser) Parse(ctx context.Context, text string, previous *syntax.Tree) (*syntax.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.parser == nil {
		return nil, errors.New("parser is closed")
	}

	var old *sitter.Tree
	if previous != nil && p.tree != nil {
		if base, edits := previous.Base(); base == p.last {
			for _, e := range edits {
				p.tree.Edit(EditInput(e))
			}
			old = p.tree
		}
	}

	tree, err := p.parser.ParseCtx(ctx, old, []byte(text))
	if err != nil {
		// the retained tree may carry edits now, drop it
		p.release()
		return nil, errors.Errorf("tree-sitter parse failed: %w", err)
	}

	result := Convert(tree.RootNode(), text, p.kinds)
	log.Debugf("parsed %d bytes (incremental=%t)", len(text), old != nil)

	p.release()
	p.last, p.tree = result, tree
	return result, nil
}

func (p *Parser) release() {
	if p.tree != nil {
		p.tree.Close()
	}
	p.last, p.tree = nil, nil
}

// Close frees the tree-sitter resources.
func (p *Parser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
	return nil
}

// EditInput converts an edit delta for tree-sitter.
func EditInput(d syntax.EditDelta) sitter.EditInput {
	return sitter.EditInput{
		StartIndex:  uint32(d.StartIndex),
		OldEndIndex: uint32(d.OldEndIndex),
		NewEndIndex: uint32(d.NewEndIndex),
		StartPoint:  point(d.StartPoint),
		OldEndPoint: point(d.OldEndPoint),
		NewEndPoint: point(d.NewEndPoint),
	}
}

func point(p syntax.Point) sitter.Point {
	return sitter.Point{Row: uint32(p.Row), Column: uint32(p.Column)}
}

// Convert copies a tree-sitter tree into a syntax tree. The root maps onto
// the fragment; every other node, anonymous ones included, keeps its span.
func Convert(root *sitter.Node, text string, kinds Kinds) *syntax.Tree {
	b := syntax.NewBuilder(text)
	for i := 0; i < int(root.ChildCount()); i++ {
		convert(b, root.Child(i), kinds)
	}
	return b.Finish()
}

func convert(b *syntax.Builder, n *sitter.Node, kinds Kinds) {
	start, end := int(n.StartByte()), int(n.EndByte())
	count := int(n.ChildCount())
	if count == 0 {
		b.Leaf(kinds.kind(n), start, end)
		return
	}

	b.Open(start)
	for i := 0; i < count; i++ {
		convert(b, n.Child(i), kinds)
	}
	b.Close(kinds.kind(n), end)
}
