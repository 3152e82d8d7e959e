// Package treecache keeps the syntax tree of the most recently touched
// document.
package treecache

import (
	"context"

	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"

	"surface/internal/syntax"
)

var log = commonlog.GetLogger("surface.treecache")

// Parser is the parsing oracle. previous, when not nil, is an edited tree
// the parser may reuse unchanged subtrees from.
type Parser interface {
	Parse(ctx context.Context, text string, previous *syntax.Tree) (*syntax.Tree, error)
}

// Key identifies the document snapshot a tree was built for.
type Key struct {
	DocumentID string
	Version    int32
}

// Cache holds at most one tree. It is not safe for concurrent use; callers
// serialise access.
type Cache struct {
	parser Parser
	key    Key
	tree   *syntax.Tree
}

func New(parser Parser) *Cache {
	return &Cache{parser: parser}
}

// Key returns the key of the cached tree, if any.
func (c *Cache) Key() (Key, bool) {
	return c.key, c.tree != nil
}

// Get returns the tree for the given snapshot, parsing text from scratch when
// the cache holds anything else.
func (c *Cache) Get(ctx context.Context, documentID string, version int32, text string) (*syntax.Tree, error) {
	key := Key{DocumentID: documentID, Version: version}
	if c.tree != nil && c.key == key {
		return c.tree, nil
	}
	return c.parse(ctx, key, text, nil)
}

// ApplyEdits moves the cached tree of documentID from version from to
// version to by applying deltas in order and reparsing text seeded with the
// edited tree. When the cache holds another document or another version the
// text is parsed from scratch instead.
func (c *Cache) ApplyEdits(ctx context.Context, documentID string, from, to int32, deltas []syntax.EditDelta, text string) (*syntax.Tree, error) {
	key := Key{DocumentID: documentID, Version: to}
	if c.tree == nil || c.key != (Key{DocumentID: documentID, Version: from}) {
		log.Debugf("no tree for %s@%d, parsing %s@%d from scratch", documentID, from, documentID, to)
		return c.parse(ctx, key, text, nil)
	}

	edited := c.tree
	for _, delta := range deltas {
		edited = edited.Edit(delta)
	}
	return c.parse(ctx, key, text, edited)
}

func (c *Cache) parse(ctx context.Context, key Key, text string, previous *syntax.Tree) (*syntax.Tree, error) {
	tree, err := c.parser.Parse(ctx, text, previous)
	if err != nil {
		return nil, errors.Errorf("failed to parse %s@%d: %w", key.DocumentID, key.Version, err)
	}
	if err := ctx.Err(); err != nil {
		// the request was abandoned, leave the slot alone
		return nil, errors.WithStack(err)
	}
	c.key = key
	c.tree = tree
	log.Debugf("cached tree for %s@%d (%d nodes, incremental=%t)", key.DocumentID, key.Version, tree.Len(), previous != nil)
	return tree, nil
}

// Forget empties the cache if it holds a tree for documentID.
func (c *Cache) Forget(documentID string) {
	if c.tree != nil && c.key.DocumentID == documentID {
		c.tree = nil
		c.key = Key{}
	}
}
