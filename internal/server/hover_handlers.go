package server

import (
	contextpkg "context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"surface/internal/cursor"
	"surface/internal/forward"
)

func (s *Server) textDocumentHover(
	context *glsp.Context,
	params *protocol.HoverParams,
) (*protocol.Hover, error) {
	hover, p, err := s.hover(params)
	if err != nil || p == nil {
		return hover, err
	}

	var forwarded *protocol.Hover
	err = s.forward(context, p, func(ctx contextpkg.Context, svc forward.Service) (err error) {
		forwarded, err = svc.Hover(ctx, p.req)
		return err
	})
	if err != nil {
		log.Debugf("hover: %s", err.Error())
		return nil, nil
	}
	return forwarded, nil
}

func (s *Server) hover(params *protocol.HoverParams) (*protocol.Hover, *pending, error) {
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
		if !ok {
			return nil, nil, nil
		}
		return markdown(componentMarkdown(comp)), nil, nil

	case c.Scope == cursor.ScopeAttributeName && c.Type == cursor.TypeComponent:
		_, prop, ok := s.prop(snap.doc.URI, c.Tag, c.Value)
		if !ok {
			return nil, nil, nil
		}
		return markdown(propMarkdown(prop)), nil, nil
	}
	return nil, nil, nil
}

func markdown(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}
