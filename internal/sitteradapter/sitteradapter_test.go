package sitteradapter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/smacker/go-tree-sitter/html"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"surface/internal/cursor"
	"surface/internal/embedded"
	"surface/internal/grammar"
	"surface/internal/position"
	"surface/internal/sitteradapter"
	"surface/internal/syntax"
)

func newParser(t *testing.T) *sitteradapter.Parser {
	t.Helper()
	p := sitteradapter.NewParser(html.GetLanguage(), sitteradapter.HTMLKinds)
	t.Cleanup(func() { p.Close() })
	return p
}

func parse(t *testing.T, p *sitteradapter.Parser, text string, previous *syntax.Tree) *syntax.Tree {
	t.Helper()
	tree, err := p.Parse(context.Background(), text, previous)
	require.NoError(t, err)
	return tree
}

func TestConvert(t *testing.T) {
	text := `<div class="a">hi</div>`
	tree := parse(t, newParser(t), text, nil)

	root := tree.RootNode()
	assert.Equal(t, syntax.KindFragment, root.Kind())
	assert.Equal(t, len(text), root.EndIndex())
	require.Equal(t, 1, root.ChildCount())

	div := root.Child(0)
	assert.Equal(t, syntax.KindTag, div.Kind())
	assert.Equal(t, syntax.KindStartTag, div.FirstChild().Kind())
	assert.Equal(t, syntax.KindEndTag, div.LastChild().Kind())
	assert.Equal(t, "div", div.FirstDescendantOfKind(syntax.KindTagName).Text())
	assert.Equal(t, "class", div.FirstDescendantOfKind(syntax.KindAttributeName).Text())
	assert.Equal(t, "hi", div.FirstDescendantOfKind(syntax.KindText).Text())
	// punctuation survives as anonymous nodes
	assert.Equal(t, syntax.KindLess, div.FirstChild().FirstChild().Kind())
}

func TestResolveOnTreeSitterTree(t *testing.T) {
	text := "<div class=\"a\"></div>\n<style>.a {}</style>"
	tree := parse(t, newParser(t), text, nil)

	ctx := cursor.Resolve(tree, strings.Index(text, "ass"))
	assert.Equal(t, cursor.LangSurface, ctx.Lang)
	assert.Equal(t, cursor.ScopeAttributeName, ctx.Scope)
	assert.Equal(t, "class", ctx.Value)
	assert.Equal(t, "div", ctx.Tag)
	assert.Equal(t, cursor.TypeTag, ctx.Type)

	ctx = cursor.Resolve(tree, strings.Index(text, ".a")+1)
	assert.Equal(t, cursor.LangCSS, ctx.Lang)
}

func TestExtractAgreesWithGrammar(t *testing.T) {
	text := "<p>x</p>\n<style>.a {}</style>\n<div></div>\n<style>.b {}</style>"

	fromSitter := parse(t, newParser(t), text, nil)
	fromGrammar, err := grammar.NewParser().Parse(context.Background(), text, nil)
	require.NoError(t, err)

	assert.Equal(t,
		embedded.Extract(fromGrammar, text, "style"),
		embedded.Extract(fromSitter, text, "style"))
}

func TestIncrementalMatchesFullParse(t *testing.T) {
	p := newParser(t)
	text := "<div>a</div>\n<p class=\"x\">b</p>"
	tree := parse(t, p, text, nil)

	edits := []struct {
		rng     protocol.Range
		newText string
	}{
		{protocol.Range{Start: protocol.Position{Line: 0, Character: 5}, End: protocol.Position{Line: 0, Character: 6}}, "abc"},
		{protocol.Range{Start: protocol.Position{Line: 1, Character: 2}, End: protocol.Position{Line: 1, Character: 2}}, " id=\"y\""},
	}

	edited := tree
	for _, e := range edits {
		var delta syntax.EditDelta
		delta, text = position.Change(text, e.rng, e.newText)
		edited = edited.Edit(delta)
	}

	incremental := parse(t, p, text, edited)
	full := parse(t, newParser(t), text, nil)
	assert.True(t, syntax.Equal(full, incremental), "incremental:\n%s\nfull:\n%s", incremental, full)
	assert.Equal(t, "<div>abc</div>\n<p id=\"y\" class=\"x\">b</p>", text)
}

func TestUnrelatedPreviousIsIgnored(t *testing.T) {
	p := newParser(t)
	other, err := grammar.NewParser().Parse(context.Background(), "<i></i>", nil)
	require.NoError(t, err)

	text := "<b>x</b>"
	tree := parse(t, p, text, other.Edit(position.Replace("<i></i>", text)))
	assert.True(t, syntax.Equal(parse(t, newParser(t), text, nil), tree))
}

func TestClosed(t *testing.T) {
	p := sitteradapter.NewParser(html.GetLanguage(), sitteradapter.HTMLKinds)
	require.NoError(t, p.Close())
	_, err := p.Parse(context.Background(), "<b></b>", nil)
	assert.Error(t, err)
}
