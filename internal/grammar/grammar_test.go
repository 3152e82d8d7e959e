package grammar_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"surface/internal/grammar"
	"surface/internal/position"
	"surface/internal/syntax"
)

func parse(t *testing.T, text string) *syntax.Tree {
	t.Helper()
	tree, err := grammar.NewParser().Parse(context.Background(), text, nil)
	require.NoError(t, err)
	return tree
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "attributes and expressions",
			text: `<div class="a" id={@x}>hi {@y}</div>`,
			want: "(fragment (tag (start_tag (tag_name) (attribute (attribute_name) (quoted_attribute_value)) (attribute (attribute_name) (expression (expression_value)))) (text) (expression (expression_value)) (end_tag (tag_name))))",
		},
		{
			name: "self closing component",
			text: `<Form.Field name="x"/>`,
			want: "(fragment (component (start_component (component_name) (attribute (attribute_name) (quoted_attribute_value)))))",
		},
		{
			name: "component with body",
			text: "<Form>\n  <span>Hello!</span>\n</Form>",
			want: "(fragment (component (start_component (component_name)) (tag (start_tag (tag_name)) (text) (end_tag (tag_name))) (end_component (component_name))))",
		},
		{
			name: "void elements",
			text: `<br><input disabled>`,
			want: "(fragment (tag (start_tag (tag_name))) (tag (start_tag (tag_name) (attribute (attribute_name)))))",
		},
		{
			name: "unquoted value",
			text: `<td colspan=2></td>`,
			want: "(fragment (tag (start_tag (tag_name) (attribute (attribute_name) (attribute_value))) (end_tag (tag_name))))",
		},
		{
			name: "style body is raw text",
			text: `<style>.a { color: red; } </b></style>`,
			want: "(fragment (tag (start_tag (tag_name)) (text) (end_tag (tag_name))))",
		},
		{
			name: "empty script",
			text: `<script></script>`,
			want: "(fragment (tag (start_tag (tag_name)) (end_tag (tag_name))))",
		},
		{
			name: "unclosed inner element",
			text: `<div><span></div>`,
			want: "(fragment (tag (start_tag (tag_name)) (ERROR (start_tag (tag_name))) (end_tag (tag_name))))",
		},
		{
			name: "stray end tag",
			text: `</p>text`,
			want: "(fragment (ERROR (tag_name)) (text))",
		},
		{
			name: "broken start tag",
			text: `<div`,
			want: "(fragment (ERROR (start_tag (tag_name))))",
		},
		{
			name: "comments and braces in strings",
			text: `<!-- hi --><p>{"}"}</p>{!-- note --}`,
			want: "(fragment (comment) (tag (start_tag (tag_name)) (expression (expression_value)) (end_tag (tag_name))) (comment))",
		},
		{
			name: "less than in text",
			text: `a < b`,
			want: "(fragment (text))",
		},
		{
			name: "unterminated expression",
			text: `{@user`,
			want: "(fragment (ERROR (expression_value)))",
		},
		{
			name: "macro component",
			text: `<#Raw>x</#Raw>`,
			want: "(fragment (component (start_component (component_name)) (text) (end_component (component_name))))",
		},
		{
			name: "blank",
			text: " \n\t",
			want: "(fragment)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parse(t, tt.text).String())
		})
	}
}

func TestParseSpans(t *testing.T) {
	text := "<div>\n  Hello! {@id}\n</div>"
	tree := parse(t, text)

	tag := tree.RootNode().FirstChild()
	require.Equal(t, syntax.KindTag, tag.Kind())
	assert.Equal(t, 0, tag.StartIndex())
	assert.Equal(t, len(text), tag.EndIndex())

	body := tag.Child(1)
	assert.Equal(t, syntax.KindText, body.Kind())
	assert.Equal(t, "Hello!", body.Text())
	assert.Equal(t, position.Point{Row: 1, Column: 2}, body.StartPoint())

	expr := tag.Child(2)
	require.Equal(t, syntax.KindExpression, expr.Kind())
	assert.Equal(t, "@id", expr.Child(1).Text())

	end := tag.LastChild()
	assert.Equal(t, syntax.KindEndTag, end.Kind())
	assert.Equal(t, position.Point{Row: 2, Column: 0}, end.StartPoint())

	assert.Equal(t, len(text), tree.RootNode().EndIndex())
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := grammar.NewParser().Parse(ctx, "<div></div>", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type change struct {
	rng  protocol.Range
	text string
}

func at(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func span(l1, c1, l2, c2 uint32) protocol.Range {
	return protocol.Range{Start: at(l1, c1), End: at(l2, c2)}
}

func TestIncrementalMatchesFullParse(t *testing.T) {
	text := strings.Join([]string{
		`<div class="a">`,
		`  <Form>{@user}</Form>`,
		`</div>`,
		`<style>`,
		`  .a {}`,
		`</style>`,
		`<p>end</p>`,
	}, "\n")

	batches := [][]change{
		{{span(6, 3, 6, 6), "the end"}},
		{{span(2, 6, 2, 6), "\n<span>new</span>"}},
		{{span(0, 0, 0, 0), "<!-- top -->\n"}},
		{{span(1, 2, 1, 2), "<div"}},
		{{span(1, 2, 1, 6), ""}},
		{{span(4, 2, 4, 8), ".b { color: red; }"}},
		{{span(5, 0, 5, 8), ""}},
		{
			{span(0, 0, 0, 0), "x"},
			{span(7, 0, 7, 0), "<br>"},
			{span(0, 0, 0, 1), ""},
		},
		{{span(2, 2, 2, 22), "{@broken"}},
		{{span(2, 2, 2, 10), ""}},
	}

	p := grammar.NewParser()
	ctx := context.Background()
	tree, err := p.Parse(ctx, text, nil)
	require.NoError(t, err)

	for i, batch := range batches {
		edited := tree
		for _, c := range batch {
			var delta position.Delta
			delta, text = position.Change(text, c.rng, c.text)
			edited = edited.Edit(delta)
		}

		tree, err = p.Parse(ctx, text, edited)
		require.NoError(t, err)

		full, err := p.Parse(ctx, text, nil)
		require.NoError(t, err)
		require.True(t, syntax.Equal(full, tree), "batch %d:\nincremental %s\nfull        %s", i, tree, full)
	}
}

// replace applies one edit given in byte offsets and returns the new text with
// the delta describing it.
func replace(text string, start, end int, insert string) (position.Delta, string) {
	ix := position.NewIndex(text)
	return position.Change(text, ix.Range(start, end), insert)
}

// reparse applies batch to tree and parses both incrementally and from
// scratch.
func reparse(t *testing.T, tree *syntax.Tree, text string, batch func(string) (position.Delta, string)) (*syntax.Tree, *syntax.Tree, string) {
	t.Helper()
	p := grammar.NewParser()
	delta, next := batch(text)
	incremental, err := p.Parse(context.Background(), next, tree.Edit(delta))
	require.NoError(t, err)
	full, err := p.Parse(context.Background(), next, nil)
	require.NoError(t, err)
	return incremental, full, next
}

func TestUnterminatedQuoteIsRescanned(t *testing.T) {
	text := "<div a=\"x></div>\n"
	tree := parse(t, text)

	incremental, full, _ := reparse(t, tree, text, func(text string) (position.Delta, string) {
		return replace(text, len(text), len(text), `"`)
	})
	assert.True(t, syntax.Equal(full, incremental), "incremental %s\nfull        %s", incremental, full)
	assert.Equal(t, syntax.KindError, incremental.RootNode().Child(0).Kind())
}

var editCorpus = []string{
	"<div class=\"a\">\n  <Form>{@user}</Form>\n</div>\n<style>\n  .a {}\n</style>\n<p>end</p>",
	"<a></a>\n<b x='1' y={@z}></b>\n<!-- c -->\n<br>\n<Card/>",
	"{@x}\n<script>if (a < b) {}</script>\n<span>{!-- note --}</span>",
	"<div a=\"x></div>\n<p>after</p>\n",
}

// editFragments favour the characters that change how markup nests.
var editFragments = []string{
	`"`, `'`, "<", ">", "{", "}", "</", "/>", "<div>", "</div>", "<p ", "=", " ", "\n", "x", "<!--", "-->", "<style>", "</style>",
}

func randomEdit(r *rand.Rand, text string) (int, int, string) {
	start := r.Intn(len(text) + 1)
	end := start
	if r.Intn(2) == 0 {
		end += r.Intn(len(text) - start + 1)
		if end-start > 8 {
			end = start + 8
		}
	}
	insert := ""
	for n := r.Intn(3); n > 0; n-- {
		insert += editFragments[r.Intn(len(editFragments))]
	}
	return start, end, insert
}

func TestRandomEditsMatchFullParse(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	p := grammar.NewParser()
	ctx := context.Background()

	for _, seed := range editCorpus {
		text := seed
		tree, err := p.Parse(ctx, text, nil)
		require.NoError(t, err)

		for i := 0; i < 300; i++ {
			// a batch of up to three edits before one reparse
			edited := tree
			for n := 1 + r.Intn(3); n > 0; n-- {
				start, end, insert := randomEdit(r, text)
				var delta position.Delta
				delta, text = replace(text, start, end, insert)
				edited = edited.Edit(delta)
			}

			tree, err = p.Parse(ctx, text, edited)
			require.NoError(t, err)
			full, err := p.Parse(ctx, text, nil)
			require.NoError(t, err)
			require.True(t, syntax.Equal(full, tree), "step %d of %q:\ntext %q\nincremental %s\nfull        %s", i, seed, text, tree, full)
		}
	}
}

func FuzzIncrementalMatchesFullParse(f *testing.F) {
	for _, seed := range editCorpus {
		f.Add(seed, uint(len(seed)/2), uint(0), `"`)
		f.Add(seed, uint(0), uint(3), "<")
		f.Add(seed, uint(len(seed)), uint(0), "}")
	}

	f.Fuzz(func(t *testing.T, text string, at, remove uint, insert string) {
		if !utf8.ValidString(text+insert) || strings.ContainsRune(text+insert, '\r') {
			t.Skip()
		}
		start := int(at % uint(len(text)+1))
		end := start + int(remove%uint(len(text)-start+1))

		tree := parse(t, text)
		incremental, full, next := reparse(t, tree, text, func(text string) (position.Delta, string) {
			return replace(text, start, end, insert)
		})
		require.True(t, syntax.Equal(full, incremental), "text %q\nincremental %s\nfull        %s", next, incremental, full)
	})
}

func TestReuseKeepsPrefix(t *testing.T) {
	p := grammar.NewParser()
	ctx := context.Background()
	text := "<a></a>\n<b></b>\n<c></c>"
	tree, err := p.Parse(ctx, text, nil)
	require.NoError(t, err)

	delta, next := position.Change(text, span(2, 1, 2, 2), "d")
	tree, err = p.Parse(ctx, next, tree.Edit(delta))
	require.NoError(t, err)

	assert.Equal(t, "<d></c>", tree.RootNode().Child(2).Text())
	assert.Equal(t, syntax.KindError, tree.RootNode().Child(2).Kind())
	assert.Equal(t, "<b></b>", tree.RootNode().Child(1).Text())
}
