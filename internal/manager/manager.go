package manager

import (
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"

	"surface/internal/position"
	"surface/internal/syntax"
)

var ErrNotOpen = errors.Base("document not open")

// Document is the state of one open document.
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string
}

// Update is the outcome of applying one batch of content changes.
type Update struct {
	Previous int32
	Document Document
	Deltas   []syntax.EditDelta
	// Reset is set when a change replaced the whole text, so the deltas do
	// not describe the batch.
	Reset bool
}

// DocumentManager holds the text of each open URI.
type DocumentManager struct {
	mu   sync.Mutex
	docs map[string]Document
}

// NewDocumentManager creates an initialized DocumentManager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		docs: make(map[string]Document),
	}
}

// Open stores the document, replacing any previous state for its URI.
func (dm *DocumentManager) Open(doc Document) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.docs[doc.URI] = doc
}

// GetDocument returns the current state of a URI.
func (dm *DocumentManager) GetDocument(uri string) (Document, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return Document{}, errors.WithDetails(ErrNotOpen, "uri", uri)
	}
	return doc, nil
}

// ApplyChanges applies LSP content changes in order, each against the text
// left by the previous one, and records the edit delta of every ranged
// change.
func (dm *DocumentManager) ApplyChanges(uri string, version int32, changes []any) (Update, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return Update{}, errors.WithDetails(ErrNotOpen, "uri", uri)
	}

	update := Update{Previous: doc.Version}
	text := doc.Text
	for _, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				update.Deltas = append(update.Deltas, position.Replace(text, c.Text))
				text = c.Text
				update.Reset = true
				continue
			}
			delta, next := position.Change(text, *c.Range, c.Text)
			update.Deltas = append(update.Deltas, delta)
			text = next
		case protocol.TextDocumentContentChangeEventWhole:
			update.Deltas = append(update.Deltas, position.Replace(text, c.Text))
			text = c.Text
			update.Reset = true
		default:
			return Update{}, errors.Errorf("unsupported content change %T", change)
		}
	}

	doc.Version = version
	doc.Text = text
	dm.docs[uri] = doc
	update.Document = doc
	return update, nil
}

// Release frees the document for a URI.
func (dm *DocumentManager) Release(uri string) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	_, ok := dm.docs[uri]
	delete(dm.docs, uri)
	return ok
}

// URIs returns the open document URIs.
func (dm *DocumentManager) URIs() []string {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	uris := make([]string, 0, len(dm.docs))
	for uri := range dm.docs {
		uris = append(uris, uri)
	}
	return uris
}

// CloseAll drops every document.
func (dm *DocumentManager) CloseAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.docs = make(map[string]Document)
}
