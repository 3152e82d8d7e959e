package server

import (
	contextpkg "context"
	"encoding/json"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"

	"surface/internal/components"
	"surface/internal/cursor"
	"surface/internal/forward"
)

// componentDataKey marks completion items that name a component so resolve
// can attach its documentation.
const componentDataKey = "surfaceComponent"

func (s *Server) textDocumentCompletion(
	context *glsp.Context,
	params *protocol.CompletionParams,
) (any, error) {
	trigger := ""
	if params.Context != nil && params.Context.TriggerCharacter != nil {
		trigger = *params.Context.TriggerCharacter
	}

	items, p, err := s.completion(params, trigger)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return items, nil
	}

	var forwarded []protocol.CompletionItem
	err = s.forward(context, p, func(ctx contextpkg.Context, svc forward.Service) (err error) {
		forwarded, err = svc.Completion(ctx, p.req)
		return err
	})
	if errors.Is(err, errStale) {
		return []protocol.CompletionItem{}, nil
	} else if err != nil {
		log.Warningf("completion: %s", err.Error())
		return items, nil
	}
	return append(items, forwarded...), nil
}

func (s *Server) completion(params *protocol.CompletionParams, trigger string) ([]protocol.CompletionItem, *pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []protocol.CompletionItem{}
	snap, err := s.snapshotAt(contextpkg.Background(), params.TextDocument.URI, params.Position)
	if err != nil || snap == nil {
		return items, nil, err
	}

	c := snap.cursor
	if lang, ok := embeddedLanguage(c.Lang); ok {
		return items, s.stage(snap, lang, params.Position, trigger), nil
	}
	if c.Lang != cursor.LangSurface {
		return items, nil, nil
	}

	switch {
	case c.Scope == cursor.ScopeExpression:
		return items, s.stage(snap, languageElixir, params.Position, trigger), nil

	case c.Scope == cursor.ScopeTagBody || c.Scope == cursor.ScopeTagName || c.Scope == cursor.ScopeComponentName:
		items = append(items, s.componentItems(snap)...)
		return items, s.stage(snap, languageHTML, params.Position, trigger), nil

	case c.Scope == cursor.ScopeComponentAttributes,
		c.Scope == cursor.ScopeAttributeName && c.Type == cursor.TypeComponent:
		return append(items, s.propItems(snap, c.Tag)...), nil, nil

	case c.Scope == cursor.ScopeTagAttributes:
		for _, event := range s.config.TagEvents {
			items = append(items, protocol.CompletionItem{
				Label: event,
				Kind:  kind(protocol.CompletionItemKindEvent),
			})
		}
		return items, s.stage(snap, languageHTML, params.Position, trigger), nil
	}
	return items, nil, nil
}

// componentItems lists the catalog's components. Called with mu held.
func (s *Server) componentItems(snap *snapshot) []protocol.CompletionItem {
	if s.catalog == nil {
		return nil
	}
	entries, err := s.catalog.List()
	if err != nil {
		log.Warningf("%s", err.Error())
		return nil
	}

	start, end := wordAt(snap.doc.Text, snap.offset)
	rng := snap.index.Range(start, end)

	items := make([]protocol.CompletionItem, 0, len(entries))
	for _, entry := range entries {
		detail := entry.Name
		items = append(items, protocol.CompletionItem{
			Label:    entry.Alias,
			Kind:     kind(protocol.CompletionItemKindClass),
			Detail:   &detail,
			TextEdit: protocol.TextEdit{Range: rng, NewText: entry.Alias},
			Data:     map[string]any{componentDataKey: entry.Name},
		})
	}
	return items
}

// propItems lists the props of the component a tag names. Required props
// sort first. Called with mu held.
func (s *Server) propItems(snap *snapshot, tag string) []protocol.CompletionItem {
	comp, ok := s.component(snap.doc.URI, tag)
	if !ok {
		return nil
	}

	start, end := wordAt(snap.doc.Text, snap.offset)
	rng := snap.index.Range(start, end)

	items := make([]protocol.CompletionItem, 0, len(comp.Props))
	for _, p := range comp.Props {
		k := protocol.CompletionItemKindField
		if p.Type == "event" {
			k = protocol.CompletionItemKindEvent
		}
		sort := "b-" + p.Name
		if p.Required() {
			sort = "a-" + p.Name
		}
		detail := "prop :" + p.Name + ", " + p.Opts
		item := protocol.CompletionItem{
			Label:    p.Name,
			Kind:     kind(k),
			Detail:   &detail,
			SortText: &sort,
			TextEdit: protocol.TextEdit{Range: rng, NewText: p.Name},
		}
		if p.Doc != "" {
			item.Documentation = p.Doc
		}
		items = append(items, item)
	}
	return items
}

func (s *Server) completionItemResolve(
	context *glsp.Context,
	params *protocol.CompletionItem,
) (*protocol.CompletionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := *params
	if name, ok := componentData(item.Data); ok && s.catalog != nil {
		comp, err := s.catalog.Lookup(name)
		if err != nil {
			if !errors.Is(err, components.ErrNotFound) {
				log.Warningf("%s", err.Error())
			}
			return &item, nil
		}
		alias := comp.Alias
		if alias == "" {
			alias = shortName(comp.Name)
		}
		detail := "Surface component <" + alias + "/>"
		item.Detail = &detail
		if comp.Docs != "" {
			item.Documentation = protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: comp.Docs,
			}
		}
		return &item, nil
	}

	if emptyDocumentation(item.Documentation) {
		item.Documentation = nil
	}
	return &item, nil
}

func componentData(data any) (string, bool) {
	switch d := data.(type) {
	case map[string]any:
		name, ok := d[componentDataKey].(string)
		return name, ok && name != ""
	case map[string]string:
		name, ok := d[componentDataKey]
		return name, ok && name != ""
	}
	return "", false
}

// emptyDocumentation reports documentation some services send as an empty
// object, which clients render as a blank popup.
func emptyDocumentation(doc any) bool {
	switch d := doc.(type) {
	case nil:
		return false
	case string:
		return false
	case protocol.MarkupContent:
		return d.Value == ""
	case *protocol.MarkupContent:
		return d == nil || d.Value == ""
	case map[string]any:
		if len(d) == 0 {
			return true
		}
		value, ok := d["value"].(string)
		return ok && value == ""
	}
	raw, err := json.Marshal(doc)
	return err == nil && (string(raw) == "{}" || string(raw) == "null")
}

// wordAt returns the byte span of the identifier-like word around offset.
func wordAt(text string, offset int) (int, int) {
	if offset > len(text) {
		offset = len(text)
	}
	start, end := offset, offset
	for start > 0 && isWordByte(text[start-1]) {
		start--
	}
	for end < len(text) && isWordByte(text[end]) {
		end++
	}
	return start, end
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '.' || c == '-' || c == ':'
}

func kind(k protocol.CompletionItemKind) *protocol.CompletionItemKind {
	return &k
}
