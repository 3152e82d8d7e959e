package treecache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"

	"surface/internal/grammar"
	"surface/internal/position"
	"surface/internal/syntax"
	"surface/internal/treecache"
)

// countingParser records how the cache drives the oracle.
type countingParser struct {
	inner       treecache.Parser
	full        int
	incremental int
	fail        bool
}

func (p *countingParser) Parse(ctx context.Context, text string, previous *syntax.Tree) (*syntax.Tree, error) {
	if p.fail {
		return nil, errors.New("boom")
	}
	if previous == nil {
		p.full++
	} else {
		p.incremental++
	}
	return p.inner.Parse(ctx, text, previous)
}

func newCache() (*treecache.Cache, *countingParser) {
	p := &countingParser{inner: grammar.NewParser()}
	return treecache.New(p), p
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	cache, p := newCache()

	_, ok := cache.Key()
	assert.False(t, ok)

	first, err := cache.Get(ctx, "file:///a.sface", 1, "<div></div>")
	require.NoError(t, err)
	assert.Equal(t, 1, p.full)

	t.Run("same key hits", func(t *testing.T) {
		again, err := cache.Get(ctx, "file:///a.sface", 1, "<div></div>")
		require.NoError(t, err)
		assert.Same(t, first, again)
		assert.Equal(t, 1, p.full)
	})

	t.Run("new version reparses", func(t *testing.T) {
		tree, err := cache.Get(ctx, "file:///a.sface", 2, "<p></p>")
		require.NoError(t, err)
		assert.Equal(t, 2, p.full)
		assert.Equal(t, "<p></p>", tree.RootNode().FirstChild().Text())
	})

	t.Run("other document replaces the slot", func(t *testing.T) {
		_, err := cache.Get(ctx, "file:///b.sface", 1, "<b></b>")
		require.NoError(t, err)
		key, ok := cache.Key()
		require.True(t, ok)
		assert.Equal(t, treecache.Key{DocumentID: "file:///b.sface", Version: 1}, key)

		_, err = cache.Get(ctx, "file:///a.sface", 2, "<p></p>")
		require.NoError(t, err)
		assert.Equal(t, 4, p.full)
	})
}

func TestApplyEdits(t *testing.T) {
	ctx := context.Background()
	cache, p := newCache()
	uri := "file:///a.sface"

	text := "<div>\n  {@user}\n</div>"
	_, err := cache.Get(ctx, uri, 1, text)
	require.NoError(t, err)

	d1, text := position.Change(text, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 4},
		End:   protocol.Position{Line: 1, Character: 8},
	}, "name")
	d2, text := position.Change(text, protocol.Range{
		Start: protocol.Position{Line: 2, Character: 6},
		End:   protocol.Position{Line: 2, Character: 6},
	}, "\n<br>")

	tree, err := cache.ApplyEdits(ctx, uri, 1, 2, []syntax.EditDelta{d1, d2}, text)
	require.NoError(t, err)
	assert.Equal(t, 1, p.incremental)
	assert.Equal(t, 1, p.full)

	full, err := grammar.NewParser().Parse(ctx, text, nil)
	require.NoError(t, err)
	assert.True(t, syntax.Equal(full, tree))
	assert.Equal(t, "@name", tree.RootNode().FirstChild().Child(1).Child(1).Text())

	key, _ := cache.Key()
	assert.Equal(t, int32(2), key.Version)

	t.Run("stale base falls back to a full parse", func(t *testing.T) {
		_, err := cache.ApplyEdits(ctx, uri, 7, 8, []syntax.EditDelta{d1}, text)
		require.NoError(t, err)
		assert.Equal(t, 2, p.full)
	})

	t.Run("other document falls back to a full parse", func(t *testing.T) {
		_, err := cache.ApplyEdits(ctx, "file:///b.sface", 8, 9, []syntax.EditDelta{d1}, "<b></b>")
		require.NoError(t, err)
		assert.Equal(t, 3, p.full)
		key, _ := cache.Key()
		assert.Equal(t, "file:///b.sface", key.DocumentID)
	})
}

func TestFailuresLeaveSlotUntouched(t *testing.T) {
	ctx := context.Background()
	cache, p := newCache()

	tree, err := cache.Get(ctx, "file:///a.sface", 1, "<div></div>")
	require.NoError(t, err)

	p.fail = true
	_, err = cache.Get(ctx, "file:///a.sface", 2, "<p></p>")
	require.Error(t, err)
	p.fail = false

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = cache.Get(cancelled, "file:///a.sface", 3, "<p></p>")
	require.ErrorIs(t, err, context.Canceled)

	key, ok := cache.Key()
	require.True(t, ok)
	assert.Equal(t, int32(1), key.Version)

	same, err := cache.Get(ctx, "file:///a.sface", 1, "<div></div>")
	require.NoError(t, err)
	assert.Same(t, tree, same)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	cache, _ := newCache()

	_, err := cache.Get(ctx, "file:///a.sface", 1, "<div></div>")
	require.NoError(t, err)

	cache.Forget("file:///b.sface")
	_, ok := cache.Key()
	assert.True(t, ok)

	cache.Forget("file:///a.sface")
	_, ok = cache.Key()
	assert.False(t, ok)
}
