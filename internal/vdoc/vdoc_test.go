package vdoc_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surface/internal/vdoc"
)

func TestURI(t *testing.T) {
	original := "file:///home/me/my app/card.sface"
	uri := vdoc.URI("css", original)
	assert.Equal(t, "embedded-content://css/file%3A%2F%2F%2Fhome%2Fme%2Fmy%20app%2Fcard.sface.css", uri)

	lang, back, err := vdoc.ParseURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "css", lang)
	assert.Equal(t, original, back)
}

func TestParseURIRejects(t *testing.T) {
	for _, uri := range []string{
		"file:///a.sface",
		"embedded-content://",
		"embedded-content://css/abc.js",
		"embedded-content://css/%zz.css",
	} {
		_, _, err := vdoc.ParseURI(uri)
		assert.ErrorIs(t, err, vdoc.ErrInvalidURI, uri)
	}
}

func TestStage(t *testing.T) {
	s := vdoc.NewStore(4)

	uri := s.Stage("file:///a.sface", "css", 1, ".a {}")
	entry, ok := s.Get(uri)
	require.True(t, ok)
	assert.Equal(t, ".a {}", entry.Content)
	assert.Equal(t, int32(1), entry.Version)

	// restaging replaces the content in place
	assert.Equal(t, uri, s.Stage("file:///a.sface", "css", 2, ".b {}"))
	entry, _ = s.Get(uri)
	assert.Equal(t, ".b {}", entry.Content)
	assert.Equal(t, 1, s.Len())
}

func TestStageEvictsLeastRecent(t *testing.T) {
	s := vdoc.NewStore(2)

	first := s.Stage("file:///1.sface", "css", 1, "1")
	second := s.Stage("file:///2.sface", "css", 1, "2")
	// touching the first makes the second the oldest
	s.Stage("file:///1.sface", "css", 2, "1'")
	third := s.Stage("file:///3.sface", "css", 1, "3")

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get(second)
	assert.False(t, ok)
	_, ok = s.Get(first)
	assert.True(t, ok)
	_, ok = s.Get(third)
	assert.True(t, ok)
}

func TestEvict(t *testing.T) {
	s := vdoc.NewStore(16)
	for i := 0; i < 3; i++ {
		s.Stage(fmt.Sprintf("file:///%d.sface", i), "css", 1, "")
	}
	s.Stage("file:///0.sface", "js", 1, "")

	assert.Equal(t, 2, s.Evict("file:///0.sface"))
	assert.Equal(t, 0, s.Evict("file:///0.sface"))
	assert.Equal(t, 2, s.Len())
}
