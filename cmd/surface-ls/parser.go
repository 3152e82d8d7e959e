package main

import (
	"github.com/smacker/go-tree-sitter/html"
	"gitlab.com/tozd/go/errors"

	"surface/internal/grammar"
	"surface/internal/sitteradapter"
	"surface/internal/treecache"
)

const (
	parserSurface = "surface"
	parserHTML    = "tree-sitter-html"
)

// newParser builds the syntax oracle selected with --parser.
func newParser(name string) (treecache.Parser, error) {
	switch name {
	case "", parserSurface:
		return grammar.NewParser(), nil
	case parserHTML:
		return sitteradapter.NewParser(html.GetLanguage(), sitteradapter.HTMLKinds), nil
	}
	return nil, errors.WithDetails(errors.New("unknown parser"), "parser", name)
}
