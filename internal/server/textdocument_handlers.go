package server

import (
	contextpkg "context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"surface/internal/cursor"
	"surface/internal/manager"
	"surface/internal/position"
	"surface/internal/syntax"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := params.TextDocument.URI
	if !s.handles(uri) {
		log.Debugf("ignoring %s", uri)
		return nil
	}

	s.docs.Open(manager.Document{
		URI:        uri,
		LanguageID: params.TextDocument.LanguageID,
		Version:    params.TextDocument.Version,
		Text:       params.TextDocument.Text,
	})
	if _, err := s.trees.Get(contextpkg.Background(), uri, params.TextDocument.Version, params.TextDocument.Text); err != nil {
		log.Warningf("%s", err.Error())
	}
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := params.TextDocument.URI
	if !s.handles(uri) {
		return nil
	}

	update, err := s.docs.ApplyChanges(uri, params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		return err
	}

	doc := update.Document
	if update.Reset {
		_, err = s.trees.Get(contextpkg.Background(), uri, doc.Version, doc.Text)
	} else {
		_, err = s.trees.ApplyEdits(contextpkg.Background(), uri, update.Previous, doc.Version, update.Deltas, doc.Text)
	}
	if err != nil {
		// the next request reparses from scratch
		log.Warningf("%s", err.Error())
	}
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// saving recompiles, which rewrites the component metadata
	if s.catalog != nil && s.scheduler != nil {
		s.scheduler.ScheduleHighPriorityTask(s.refreshTask())
	}
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := params.TextDocument.URI
	if n := s.vdocs.Evict(uri); n > 0 {
		log.Debugf("evicted %d virtual documents of %s", n, uri)
	}
	s.trees.Forget(uri)
	s.docs.Release(uri)
	return nil
}

// snapshot is one document version with its tree and the cursor context at
// a position.
type snapshot struct {
	doc    manager.Document
	tree   *syntax.Tree
	index  *position.Index
	offset int
	cursor cursor.Context
}

// snapshotAt resolves the cursor context at pos. It returns nil for documents
// the server does not handle. Called with mu held.
func (s *Server) snapshotAt(ctx contextpkg.Context, uri string, pos protocol.Position) (*snapshot, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}
	if !s.handles(uri) {
		return nil, nil
	}
	doc, err := s.docs.GetDocument(uri)
	if err != nil {
		return nil, err
	}
	tree, err := s.trees.Get(ctx, uri, doc.Version, doc.Text)
	if err != nil {
		return nil, err
	}

	index := position.NewIndex(doc.Text)
	offset := index.OffsetAt(pos)
	snap := &snapshot{
		doc:    doc,
		tree:   tree,
		index:  index,
		offset: offset,
		cursor: cursor.Resolve(tree, offset),
	}
	log.Debugf("%s@%d offset %d: %+v", uri, doc.Version, offset, snap.cursor)
	return snap, nil
}
