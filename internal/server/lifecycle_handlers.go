package server

import (
	"path/filepath"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/multierr"

	"surface/internal/components"
	"surface/internal/config"
	"surface/internal/scheduler"
	"surface/internal/vdoc"
)

var version = "dev"

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Config
	if params.InitializationOptions != nil || !s.fileConfig {
		cfg, err := config.Load(params.InitializationOptions)
		if err != nil {
			return nil, err
		}
		s.config = cfg
	}
	log.Infof("config: %+v", s.config)
	s.vdocs = vdoc.NewStore(s.config.VirtualDocumentCapacity)

	// Root
	s.root = rootPath(params)
	log.Infof("workspace root: %s", s.root)

	// Component metadata
	catalog, err := components.Open(s.fs, filepath.Join(s.root, s.config.DefinitionsDir))
	if err != nil {
		log.Errorf("component metadata unavailable: %s", err.Error())
	} else {
		s.catalog = catalog
	}

	// Background refresh
	s.scheduler = scheduler.NewScheduler(4)
	s.scheduler.RunScheduler()
	if s.catalog != nil {
		s.scheduler.SchedulePeriodicTask(s.config.RefreshInterval(), s.refreshTask())
	}

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.Handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.False},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"<", ".", ":", "@", "{", " "},
		ResolveProvider:   &protocol.True,
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{ReloadComponentsCommand},
	}

	s.ready = true
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

func rootPath(params *protocol.InitializeParams) string {
	if params.RootURI != nil {
		if path, err := uriToPath(*params.RootURI); err == nil {
			return path
		}
	}
	if len(params.WorkspaceFolders) > 0 {
		if path, err := uriToPath(params.WorkspaceFolders[0].URI); err == nil {
			return path
		}
	}
	if params.RootPath != nil {
		return *params.RootPath
	}
	return "."
}

// refreshTask reloads the catalog when the metadata files changed.
func (s *Server) refreshTask() scheduler.Task {
	catalog := s.catalog
	return scheduler.Task{
		Name: "refresh components",
		Execute: func() error {
			changed, err := catalog.Refresh()
			if changed {
				log.Infof("component metadata reloaded from %s", catalog.Dir())
			}
			return err
		},
	}
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

func (s *Server) setTrace(
	context *glsp.Context,
	params *protocol.SetTraceParams,
) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) cancelRequest(
	context *glsp.Context,
	params *protocol.CancelParams,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// request ids do not reach the handlers, so every pending forward is
	// abandoned
	for id, cancel := range s.inflight {
		cancel()
		delete(s.inflight, id)
	}
	log.Debugf("cancelled pending requests for %v", params.ID)
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.scheduler != nil {
		s.scheduler.StopScheduler()
		s.scheduler = nil
	}
	if s.catalog != nil {
		err = multierr.Append(err, s.catalog.Close())
		s.catalog = nil
	}
	if closer, ok := s.parser.(interface{ Close() error }); ok {
		err = multierr.Append(err, closer.Close())
	}
	s.docs.CloseAll()
	s.ready = false
	return err
}
