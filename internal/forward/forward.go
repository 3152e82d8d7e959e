// Package forward delegates requests about embedded code to the client, which
// routes them to the language service owning the virtual document.
package forward

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

const Method = "surface/forward"

type Kind string

const (
	KindCompletion Kind = "completion"
	KindHover      Kind = "hover"
	KindDefinition Kind = "definition"
)

var ErrTimeout = errors.Base("forward request timed out")

var log = commonlog.GetLogger("surface.forward")

// Request is the payload of surface/forward.
type Request struct {
	Kind             Kind              `json:"kind"`
	URI              string            `json:"uri"`
	LanguageID       string            `json:"languageId"`
	Content          string            `json:"content"`
	Position         protocol.Position `json:"position"`
	TriggerCharacter string            `json:"triggerCharacter,omitempty"`
}

// Service answers requests on virtual documents.
type Service interface {
	Completion(ctx context.Context, req Request) ([]protocol.CompletionItem, error)
	Hover(ctx context.Context, req Request) (*protocol.Hover, error)
	Definition(ctx context.Context, req Request) ([]protocol.Location, error)
}

// CallFunc issues a request to the client and decodes its result.
type CallFunc func(method string, params any, result any)

// ClientService forwards through server-to-client requests.
type ClientService struct {
	call    CallFunc
	timeout time.Duration
}

func NewClientService(call CallFunc, timeout time.Duration) *ClientService {
	return &ClientService{call: call, timeout: timeout}
}

func (s *ClientService) Completion(ctx context.Context, req Request) ([]protocol.CompletionItem, error) {
	req.Kind = KindCompletion
	raw, err := s.do(ctx, req)
	if err != nil || len(raw) == 0 {
		return nil, err
	}

	// either a CompletionList or a bare array of items
	var list protocol.CompletionList
	if err := json.Unmarshal(raw, &list); err == nil && list.Items != nil {
		return list.Items, nil
	}
	var items []protocol.CompletionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Errorf("failed to decode completion result: %w", err)
	}
	return items, nil
}

func (s *ClientService) Hover(ctx context.Context, req Request) (*protocol.Hover, error) {
	req.Kind = KindHover
	raw, err := s.do(ctx, req)
	if err != nil || len(raw) == 0 {
		return nil, err
	}

	// the client answers with every hover it collected
	var hovers []protocol.Hover
	if err := json.Unmarshal(raw, &hovers); err == nil {
		if len(hovers) == 0 {
			return nil, nil
		}
		return &hovers[0], nil
	}
	var hover protocol.Hover
	if err := json.Unmarshal(raw, &hover); err != nil {
		return nil, errors.Errorf("failed to decode hover result: %w", err)
	}
	return &hover, nil
}

func (s *ClientService) Definition(ctx context.Context, req Request) ([]protocol.Location, error) {
	req.Kind = KindDefinition
	raw, err := s.do(ctx, req)
	if err != nil || len(raw) == 0 {
		return nil, err
	}

	var locations []protocol.Location
	if err := json.Unmarshal(raw, &locations); err == nil {
		return locations, nil
	}
	var location protocol.Location
	if err := json.Unmarshal(raw, &location); err != nil {
		return nil, errors.Errorf("failed to decode definition result: %w", err)
	}
	return []protocol.Location{location}, nil
}

// do runs the call in the background so an abandoned request or a slow
// client does not hold the caller.
func (s *ClientService) do(ctx context.Context, req Request) (json.RawMessage, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan json.RawMessage, 1)
	go func() {
		var raw json.RawMessage
		s.call(Method, req, &raw)
		done <- raw
	}()

	select {
	case raw := <-done:
		if string(raw) == "null" {
			return nil, nil
		}
		return raw, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warningf("%s %s for %s timed out", Method, req.Kind, req.URI)
			return nil, errors.WithDetails(ErrTimeout, "kind", string(req.Kind), "uri", req.URI)
		}
		return nil, errors.WithStack(ctx.Err())
	}
}
