package main

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"gitlab.com/tozd/go/errors"

	"surface/internal/config"
	"surface/internal/server"
)

type serveHandler struct {
	logfile   string
	verbose   int
	tcp       string
	websocket string
	config    string
	parser    string
}

func newServeCommand() *cobra.Command {
	me := &serveHandler{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the language server (stdio unless --tcp or --websocket is given)",
		Args:  cobra.NoArgs,
	}

	cmd.Flags().StringVar(&me.logfile, "logfile", "", "path to log file")
	cmd.Flags().CountVarP(&me.verbose, "verbose", "v", "increase log verbosity")
	cmd.Flags().StringVar(&me.tcp, "tcp", "", "listen on a TCP address instead of stdio")
	cmd.Flags().StringVar(&me.websocket, "websocket", "", "listen on a WebSocket address instead of stdio")
	cmd.Flags().StringVar(&me.config, "config", "", "path to a JSON config file")
	cmd.Flags().StringVar(&me.parser, "parser", parserSurface, "syntax oracle: surface or tree-sitter-html")
	cmd.MarkFlagsMutuallyExclusive("tcp", "websocket")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run()
	}
	return cmd
}

func (me *serveHandler) Run() error {
	// Logging
	var path *string
	if me.logfile != "" {
		path = &me.logfile
	}
	commonlog.Configure(1+me.verbose, path)

	parser, err := newParser(me.parser)
	if err != nil {
		return err
	}
	opts := server.Options{FS: afero.NewOsFs(), Parser: parser}
	if me.config != "" {
		cfg, err := loadConfig(opts.FS, me.config)
		if err != nil {
			return err
		}
		opts.Config = &cfg
	}

	lsp := server.NewServer(server.New(opts), me.verbose > 1)

	switch {
	case me.tcp != "":
		err = lsp.RunTCP(me.tcp)
	case me.websocket != "":
		err = lsp.RunWebSocket(me.websocket)
	default:
		err = lsp.RunStdio()
	}
	if err != nil {
		return errors.Errorf("server error: %w", err)
	}
	return nil
}

func loadConfig(fs afero.Fs, path string) (config.Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		return config.Config{}, errors.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return config.LoadFromJSON(f)
}

// stdinFile is the argument naming standard input.
const stdinFile = "-"

func readSource(fs afero.Fs, path string) (string, error) {
	if path == stdinFile {
		data, err := afero.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", errors.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
