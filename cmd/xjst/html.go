package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-xjst/pkg/stream"
)

var htmlCmd = &cobra.Command{
	Use:   "html --templates <glob> [flags] <data files or globs>...",
	Short: "Render BEMJSON data files with compiled templates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHTML,
}

func init() {
	htmlCmd.Flags().StringSlice("templates", nil, "compiled template files or globs, applied in order")
	htmlCmd.Flags().StringP("out", "o", ".", "output directory")
	htmlCmd.Flags().Bool("sanitize", false, "sanitise rendered HTML")
}

func runHTML(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	templates, err := flags.GetStringSlice("templates")
	if err != nil {
		return err
	}
	out, err := flags.GetString("out")
	if err != nil {
		return err
	}
	sanitize, err := flags.GetBool("sanitize")
	if err != nil {
		return err
	}

	paths, err := stream.Glob(templates...)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("--templates matched no files")
	}

	job := htmlJob{Data: args, Sanitize: sanitize}
	files, err := job.run(cmd.Context(), slog.Default(), stream.FromPaths(paths...))
	if err != nil {
		return err
	}
	return writeFiles(cmd.Context(), out, files, cmd.OutOrStdout())
}
