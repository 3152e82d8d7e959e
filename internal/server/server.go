package server

import (
	contextpkg "context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
	"gitlab.com/tozd/go/errors"

	"surface/internal/components"
	"surface/internal/config"
	"surface/internal/forward"
	"surface/internal/grammar"
	"surface/internal/manager"
	"surface/internal/scheduler"
	"surface/internal/treecache"
	"surface/internal/vdoc"
)

const Name = "surface-ls"

const (
	ReloadComponentsCommand = "surface.reloadComponents"
	VirtualDocumentMethod   = "surface/virtualDocument"
)

var log = commonlog.GetLogger("surface.server")

var ErrNotInitialized = errors.Base("server not initialized")

// Options configures a Server. Zero fields take defaults.
type Options struct {
	FS     afero.Fs
	Config *config.Config
	Parser treecache.Parser
	// Forwarder builds the foreign-language service for a request.
	Forwarder func(context *glsp.Context, cfg config.Config) forward.Service
}

// Server answers LSP requests for Surface templates. Handlers are serialised
// by mu; forwarding to the client happens with mu released.
type Server struct {
	protocol.Handler

	mu         sync.Mutex
	fs         afero.Fs
	config     config.Config
	fileConfig bool
	root       string
	ready      bool

	parser    treecache.Parser
	docs      *manager.DocumentManager
	trees     *treecache.Cache
	vdocs     *vdoc.Store
	catalog   *components.Catalog
	scheduler *scheduler.Scheduler
	forwarder func(*glsp.Context, config.Config) forward.Service

	inflight map[int]contextpkg.CancelFunc
	nextID   int
}

func New(opts Options) *Server {
	s := &Server{
		fs:        opts.FS,
		parser:    opts.Parser,
		forwarder: opts.Forwarder,
		docs:      manager.NewDocumentManager(),
		inflight:  make(map[int]contextpkg.CancelFunc),
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.parser == nil {
		s.parser = grammar.NewParser()
	}
	if s.forwarder == nil {
		s.forwarder = clientForwarder
	}
	if opts.Config != nil {
		s.config = *opts.Config
		s.fileConfig = true
	} else {
		s.config = config.Default()
	}
	s.trees = treecache.New(s.parser)
	s.vdocs = vdoc.NewStore(s.config.VirtualDocumentCapacity)

	s.Handler = protocol.Handler{
		Initialize:              s.initialize,
		Initialized:             s.initialized,
		Shutdown:                s.shutdown,
		SetTrace:                s.setTrace,
		CancelRequest:           s.cancelRequest,
		TextDocumentDidOpen:     s.textDocumentDidOpen,
		TextDocumentDidChange:   s.textDocumentDidChange,
		TextDocumentDidSave:     s.textDocumentDidSave,
		TextDocumentDidClose:    s.textDocumentDidClose,
		TextDocumentHover:       s.textDocumentHover,
		TextDocumentDefinition:  s.textDocumentDefinition,
		TextDocumentCompletion:  s.textDocumentCompletion,
		CompletionItemResolve:   s.completionItemResolve,
		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
	}
	return s
}

// NewServer wraps s in a glsp server.
func NewServer(s *Server, debug bool) *glspserver.Server {
	return glspserver.NewServer(s, Name, debug)
}

// Handle serves the custom requests and hands everything else to the
// protocol handler.
func (s *Server) Handle(context *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	if context.Method == VirtualDocumentMethod {
		var params VirtualDocumentParams
		if err := json.Unmarshal(context.Params, &params); err != nil {
			return nil, true, false, err
		}
		r, err := s.virtualDocument(context, &params)
		return r, true, true, err
	}
	return s.Handler.Handle(context)
}

func clientForwarder(context *glsp.Context, cfg config.Config) forward.Service {
	return forward.NewClientService(forward.CallFunc(context.Call), cfg.ForwardTimeout())
}

// track derives a request context that $/cancelRequest can abandon.
func (s *Server) track() (contextpkg.Context, func()) {
	ctx, cancel := contextpkg.WithCancel(contextpkg.Background())

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.inflight[id] = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
		cancel()
	}
}

// current reports whether uri is still open at version. Called without mu.
func (s *Server) current(uri string, version int32) bool {
	doc, err := s.docs.GetDocument(uri)
	return err == nil && doc.Version == version
}

// handles reports whether uri names a document the server is configured for.
func (s *Server) handles(uri string) bool {
	path, err := uriToPath(uri)
	if err != nil {
		return false
	}
	if s.root != "" {
		if rel, err := filepath.Rel(s.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			if s.config.Matches(rel) {
				return true
			}
		}
	}
	return s.config.Matches(path)
}

func uriToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", errors.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

func pathToURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
