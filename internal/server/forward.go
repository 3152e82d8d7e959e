package server

import (
	contextpkg "context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"

	"surface/internal/config"
	"surface/internal/cursor"
	"surface/internal/embedded"
	"surface/internal/forward"
	"surface/internal/vdoc"
)

var errStale = errors.Base("document changed while forwarding")

// language is a foreign language reachable through a virtual document.
type language struct {
	ext string // virtual uri extension
	id  string // LSP language id
	tag string // embedding tag, empty when the whole document is forwarded
}

var (
	languageCSS        = language{ext: "css", id: "css", tag: "style"}
	languageJavaScript = language{ext: "js", id: "javascript", tag: "script"}
	languageHTML       = language{ext: "html", id: "html"}
	languageElixir     = language{ext: "ex", id: "elixir"}
)

func embeddedLanguage(lang cursor.Lang) (language, bool) {
	switch lang {
	case cursor.LangCSS:
		return languageCSS, true
	case cursor.LangJavaScript:
		return languageJavaScript, true
	}
	return language{}, false
}

// pending is a forward prepared under mu and sent after it is released.
type pending struct {
	uri     string
	version int32
	config  config.Config
	req     forward.Request
}

// stage stores the virtual document for lang and prepares the request.
// Called with mu held.
func (s *Server) stage(snap *snapshot, lang language, pos protocol.Position, trigger string) *pending {
	content := snap.doc.Text
	if lang.tag != "" {
		content = embedded.Extract(snap.tree, snap.doc.Text, lang.tag)
	}
	uri := s.vdocs.Stage(snap.doc.URI, lang.ext, snap.doc.Version, content)

	return &pending{
		uri:     snap.doc.URI,
		version: snap.doc.Version,
		config:  s.config,
		req: forward.Request{
			URI:              uri,
			LanguageID:       lang.id,
			Content:          content,
			Position:         pos,
			TriggerCharacter: trigger,
		},
	}
}

// forward runs call against the foreign service without holding mu. It
// returns errStale when the document moved on meanwhile.
func (s *Server) forward(context *glsp.Context, p *pending, call func(contextpkg.Context, forward.Service) error) error {
	ctx, release := s.track()
	defer release()

	if err := call(ctx, s.forwarder(context, p.config)); err != nil {
		return errors.Errorf("failed to forward to %s: %w", p.req.LanguageID, err)
	}
	if !s.current(p.uri, p.version) {
		log.Debugf("discarding %s result for stale %s@%d", p.req.LanguageID, p.uri, p.version)
		return errors.WithStack(errStale)
	}
	return nil
}

// isVirtual reports whether uri belongs to the virtual document scheme.
func isVirtual(uri string) bool {
	_, _, err := vdoc.ParseURI(uri)
	return err == nil
}
