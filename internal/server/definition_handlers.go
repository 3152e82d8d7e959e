package server

import (
	contextpkg "context"
	"path/filepath"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"surface/internal/cursor"
	"surface/internal/forward"
)

func (s *Server) textDocumentDefinition(
	context *glsp.Context,
	params *protocol.DefinitionParams,
) (any, error) {
	location, p, err := s.definition(params)
	if err != nil || p == nil {
		if location == nil {
			return nil, err
		}
		return *location, err
	}

	var locations []protocol.Location
	err = s.forward(context, p, func(ctx contextpkg.Context, svc forward.Service) (err error) {
		locations, err = svc.Definition(ctx, p.req)
		return err
	})
	if err != nil {
		log.Debugf("definition: %s", err.Error())
		return nil, nil
	}
	return locations, nil
}

func (s *Server) definition(params *protocol.DefinitionParams) (*protocol.Location, *pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshotAt(contextpkg.Background(), params.TextDocument.URI, params.Position)
	if err != nil || snap == nil {
		return nil, nil, err
	}

	c := snap.cursor
	if lang, ok := embeddedLanguage(c.Lang); ok {
		return nil, s.stage(snap, lang, params.Position, ""), nil
	}

	switch {
	case c.Scope == cursor.ScopeComponentName:
		comp, ok := s.component(snap.doc.URI, c.Value)
		if !ok || comp.Source == "" {
			return nil, nil, nil
		}
		return &protocol.Location{URI: s.sourceURI(comp.Source)}, nil, nil

	case c.Scope == cursor.ScopeAttributeName && c.Type == cursor.TypeComponent:
		comp, prop, ok := s.prop(snap.doc.URI, c.Tag, c.Value)
		if !ok || comp.Source == "" {
			return nil, nil, nil
		}
		line := protocol.UInteger(0)
		if prop.Line > 0 {
			line = protocol.UInteger(prop.Line - 1)
		}
		return &protocol.Location{
			URI: s.sourceURI(comp.Source),
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: 0},
				End:   protocol.Position{Line: line + 1, Character: 0},
			},
		}, nil, nil
	}
	return nil, nil, nil
}

// sourceURI resolves a workspace-relative source path.
func (s *Server) sourceURI(source string) protocol.DocumentUri {
	if !filepath.IsAbs(source) {
		source = filepath.Join(s.root, source)
	}
	return pathToURI(source)
}
