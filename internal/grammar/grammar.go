// Package grammar is a hand-written parser for Surface templates producing
// syntax trees in the shape of the tree-sitter-surface grammar.
package grammar

import (
	"context"

	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"

	"surface/internal/syntax"
)

var log = commonlog.GetLogger("surface.grammar")

// Parser parses Surface templates. It is stateless and safe to share.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse builds the tree for text. When previous is an edited tree derived
// from an earlier parse, top-level elements that end before the first edit
// are copied from it instead of being scanned again.
func (p *Parser) Parse(ctx context.Context, text string, previous *syntax.Tree) (*syntax.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	s := &scanner{text: text, b: syntax.NewBuilder(text)}
	if previous != nil && previous.Edited() {
		reused := s.reuse(previous)
		log.Debugf("reused %d top-level nodes", reused)
	}

	if err := s.content(ctx); err != nil {
		return nil, err
	}
	return s.b.Finish(), nil
}

// reuse adopts the leading run of complete top-level elements that the edits
// recorded on previous left untouched, and moves the scanner past them.
func (s *scanner) reuse(previous *syntax.Tree) int {
	_, edits := previous.Base()
	limit := len(s.text)
	for _, e := range edits {
		if e.StartIndex < limit {
			limit = e.StartIndex
		}
	}

	root := previous.RootNode()
	count := 0
	for i := 0; i < root.ChildCount(); i++ {
		c := root.Child(i)
		if c.EndIndex() > limit || !s.reusable(c) {
			break
		}
		s.b.Adopt(c)
		s.pos = c.EndIndex()
		count++
	}
	return count
}

// reusable reports whether c is a top-level node whose parse cannot depend on
// the text following it. Recovery looks ahead past the node (an unterminated
// quote searches the rest of the text), so nodes holding an ERROR are
// rescanned.
func (s *scanner) reusable(c syntax.Node) bool {
	end := c.EndIndex()
	if end > len(s.text) || end <= c.StartIndex() {
		return false
	}
	if !c.FirstDescendantOfKind(syntax.KindError).IsNull() {
		return false
	}
	source := s.text[c.StartIndex():end]
	switch c.Kind() {
	case syntax.KindTag, syntax.KindComponent:
		return source[len(source)-1] == '>'
	case syntax.KindComment:
		return len(source) >= 7 && (source[len(source)-3:] == "-->" || source[len(source)-3:] == "--}")
	}
	return false
}
