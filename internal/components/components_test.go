package components_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surface/internal/components"
)

const dir = "/work/_build/dev/definitions"

const byName = `{
  "MyAppWeb.Components.Button": {
    "docs": "A button.",
    "source": "lib/my_app_web/components/button.ex",
    "props": [
      {"name": "label", "type": "string", "opts": "required: true", "doc": "The label", "line": 12},
      {"name": "click", "type": "event", "opts": "", "doc": "On click", "line": 15}
    ]
  },
  "MyAppWeb.Components.Card": {
    "docs": "A card.",
    "source": "lib/my_app_web/components/card.ex",
    "props": []
  }
}`

const list = `[
  {"name": "MyAppWeb.Components.Card", "alias": "Card"},
  {"name": "MyAppWeb.Components.Button", "alias": "Button"}
]`

func openCatalog(t *testing.T, fs afero.Fs) *components.Catalog {
	t.Helper()
	c, err := components.Open(fs, dir)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func writeDefinitions(t *testing.T, fs afero.Fs, byNameJSON, listJSON string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, components.ByNameFile), []byte(byNameJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, components.ListFile), []byte(listJSON), 0o644))
}

func TestLookup(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDefinitions(t, fs, byName, list)
	c := openCatalog(t, fs)

	comp, err := c.Lookup("MyAppWeb.Components.Button")
	require.NoError(t, err)
	assert.Equal(t, "Button", comp.Alias)
	assert.Equal(t, "A button.", comp.Docs)
	assert.Equal(t, "lib/my_app_web/components/button.ex", comp.Source)
	require.Len(t, comp.Props, 2)
	assert.Equal(t, "label", comp.Props[0].Name)
	assert.True(t, comp.Props[0].Required())
	assert.Equal(t, 12, comp.Props[0].Line)
	assert.Equal(t, "event", comp.Props[1].Type)
	assert.False(t, comp.Props[1].Required())

	_, err = c.Lookup("MyAppWeb.Components.Missing")
	assert.ErrorIs(t, err, components.ErrNotFound)
}

func TestProp(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDefinitions(t, fs, byName, list)
	c := openCatalog(t, fs)

	_, prop, err := c.Prop("MyAppWeb.Components.Button", "click")
	require.NoError(t, err)
	assert.Equal(t, 15, prop.Line)

	_, _, err = c.Prop("MyAppWeb.Components.Button", "nope")
	assert.ErrorIs(t, err, components.ErrNotFound)
}

func TestList(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDefinitions(t, fs, byName, list)
	c := openCatalog(t, fs)

	entries, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []components.Entry{
		{Name: "MyAppWeb.Components.Button", Alias: "Button"},
		{Name: "MyAppWeb.Components.Card", Alias: "Card"},
	}, entries)
}

func TestMissingAndMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := openCatalog(t, fs)

	entries, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	writeDefinitions(t, fs, `{"broken": `, list)
	require.NoError(t, c.Reload())

	// listed, but without docs or props
	comp, err := c.Lookup("MyAppWeb.Components.Button")
	require.NoError(t, err)
	assert.Empty(t, comp.Docs)
	assert.Empty(t, comp.Props)
	entries, err = c.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRefresh(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDefinitions(t, fs, byName, list)
	c := openCatalog(t, fs)

	changed, err := c.Refresh()
	require.NoError(t, err)
	assert.False(t, changed)

	writeDefinitions(t, fs, `{}`, `[]`)
	later := time.Now().Add(time.Minute)
	require.NoError(t, fs.Chtimes(filepath.Join(dir, components.ListFile), later, later))

	changed, err = c.Refresh()
	require.NoError(t, err)
	assert.True(t, changed)
	entries, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClosed(t *testing.T) {
	c, err := components.Open(afero.NewMemMapFs(), dir)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.List()
	assert.ErrorIs(t, err, components.ErrCatalogClosed)
	assert.NoError(t, c.Close())
}

func TestParseAliases(t *testing.T) {
	src := []byte(`defmodule MyAppWeb.Page do
  use Surface.Component

  alias MyAppWeb.Components.Button
  alias MyAppWeb.Components.Card, as: Panel
  alias MyAppWeb.Forms.{Input, Select}
  # alias Commented.Out
end
`)
	aliases := components.ParseAliases(src)
	assert.Equal(t, components.Aliases{
		"Button": "MyAppWeb.Components.Button",
		"Panel":  "MyAppWeb.Components.Card",
		"Input":  "MyAppWeb.Forms.Input",
		"Select": "MyAppWeb.Forms.Select",
	}, aliases)

	qualified, ok := aliases.Resolve("Button")
	assert.True(t, ok)
	assert.Equal(t, "MyAppWeb.Components.Button", qualified)
	_, ok = aliases.Resolve("Unknown")
	assert.False(t, ok)
}

func TestParseAliasesAfterLongLine(t *testing.T) {
	src := []byte("  @doc \"" + strings.Repeat("x", 200*1024) + "\"\n  alias MyAppWeb.Components.Button\n")

	qualified, ok := components.ParseAliases(src).Resolve("Button")
	assert.True(t, ok)
	assert.Equal(t, "MyAppWeb.Components.Button", qualified)
}

func TestReadAliases(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/lib/page.ex", []byte("  alias A.B\n"), 0o644))

	path := components.CompanionPath("/work/lib/page.sface", ".ex")
	assert.Equal(t, "/work/lib/page.ex", path)

	aliases, err := components.ReadAliases(fs, path)
	require.NoError(t, err)
	qualified, _ := aliases.Resolve("B")
	assert.Equal(t, "A.B", qualified)

	aliases, err = components.ReadAliases(fs, "/work/lib/none.ex")
	require.NoError(t, err)
	assert.Empty(t, aliases)
}
