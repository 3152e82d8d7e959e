package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// Version will be set during the build process using ldflags
var Version = ""

func main() {
	if err := run(os.Args[1:]); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}
	return nil
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "surface-ls",
		Short:         "Language server for Surface templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = version()

	rootCmd.AddCommand(
		newServeCommand(),
		newInspectCommand(),
		newExtractCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "surface-ls version %s\n", rootCmd.Version)
			},
		},
	)
	return rootCmd
}

func version() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(dev) v0.0.0"
	}
	return info.Main.Version
}

func init() {
	// Give it some cores
	runtime.GOMAXPROCS(4)
}
