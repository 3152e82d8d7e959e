package server

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	if params.Command == ReloadComponentsCommand {
		return nil, s.reloadComponents(context)
	}
	return nil, errors.WithDetails(errors.New("unknown command"), "command", params.Command)
}

func (s *Server) reloadComponents(ctx *glsp.Context) error {
	log.Info("called 'reloadComponents'")

	s.mu.Lock()
	catalog := s.catalog
	s.mu.Unlock()

	if catalog == nil {
		return errors.WithStack(ErrNotInitialized)
	}
	if err := catalog.Reload(); err != nil {
		return err
	}

	entries, err := catalog.List()
	if err != nil {
		return err
	}
	if ctx != nil {
		ctx.Notify(
			"window/showMessage",
			protocol.ShowMessageParams{
				Type:    protocol.MessageTypeInfo,
				Message: fmt.Sprintf("Surface: loaded %d components", len(entries)),
			},
		)
	}
	return nil
}
