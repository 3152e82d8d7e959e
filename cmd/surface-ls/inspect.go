package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"surface/internal/cursor"
	"surface/internal/embedded"
	"surface/internal/syntax"
)

// fs is the filesystem the offline commands read from.
var fs = afero.NewOsFs()

func parse(cmd *cobra.Command, path string) (string, *syntax.Tree, error) {
	text, err := readSource(fs, path)
	if err != nil {
		return "", nil, err
	}
	name, _ := cmd.Flags().GetString("parser")
	parser, err := newParser(name)
	if err != nil {
		return "", nil, err
	}
	if closer, ok := parser.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	tree, err := parser.Parse(cmd.Context(), text, nil)
	if err != nil {
		return "", nil, errors.Errorf("failed to parse %s: %w", path, err)
	}
	return text, tree, nil
}

func newInspectCommand() *cobra.Command {
	var offset int
	var tree bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the cursor context at a byte offset as JSON",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "byte offset of the cursor")
	cmd.Flags().BoolVar(&tree, "tree", false, "print the syntax tree instead")
	cmd.Flags().String("parser", parserSurface, "syntax oracle: surface or tree-sitter-html")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		text, t, err := parse(cmd, args[0])
		if err != nil {
			return err
		}
		if tree {
			fmt.Fprintln(cmd.OutOrStdout(), t.RootNode().String())
			return nil
		}
		if offset < 0 || offset > len(text) {
			return errors.WithDetails(errors.New("offset out of range"), "offset", offset, "length", len(text))
		}

		out, err := json.MarshalIndent(cursor.Resolve(t, offset), "", "  ")
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	return cmd
}

func newExtractCommand() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the virtual document for the style or script elements",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&tag, "tag", "style", "embedding tag (style or script)")
	cmd.Flags().String("parser", parserSurface, "syntax oracle: surface or tree-sitter-html")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if tag != "style" && tag != "script" {
			return errors.WithDetails(errors.New("unsupported tag"), "tag", tag)
		}
		text, t, err := parse(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), embedded.Extract(t, text, tag))
		return nil
	}
	return cmd
}
