package server

import (
	"github.com/tliron/glsp"
	"gitlab.com/tozd/go/errors"
)

var ErrUnknownVirtualDocument = errors.Base("unknown virtual document")

type VirtualDocumentParams struct {
	URI string `json:"uri"`
}

type VirtualDocument struct {
	URI     string `json:"uri"`
	Version int32  `json:"version"`
	Content string `json:"content"`
}

// virtualDocument serves the content staged for a virtual document uri.
func (s *Server) virtualDocument(
	context *glsp.Context,
	params *VirtualDocumentParams,
) (*VirtualDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, errors.WithStack(ErrNotInitialized)
	}
	if !isVirtual(params.URI) {
		return nil, errors.WithDetails(ErrUnknownVirtualDocument, "uri", params.URI)
	}
	entry, ok := s.vdocs.Get(params.URI)
	if !ok {
		return nil, errors.WithDetails(ErrUnknownVirtualDocument, "uri", params.URI)
	}
	return &VirtualDocument{
		URI:     entry.URI,
		Version: entry.Version,
		Content: entry.Content,
	}, nil
}
