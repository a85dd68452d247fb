package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <template files or globs>...",
	Short: "Compile templates to JavaScript modules",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().String("engine", "bemhtml", "template engine (bemhtml|bemtree)")
	compileCmd.Flags().String("export-name", "", "wrap output in a bundle exported under this name")
	compileCmd.Flags().String("extension", "", "output extension (default <engine>.js)")
	compileCmd.Flags().StringP("out", "o", ".", "output directory")
	compileCmd.Flags().Bool("keep-going", false, "skip templates that fail to compile")
}

func runCompile(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	engine, err := flags.GetString("engine")
	if err != nil {
		return err
	}
	exportName, err := flags.GetString("export-name")
	if err != nil {
		return err
	}
	extension, err := flags.GetString("extension")
	if err != nil {
		return err
	}
	out, err := flags.GetString("out")
	if err != nil {
		return err
	}
	keepGoing, err := flags.GetBool("keep-going")
	if err != nil {
		return err
	}

	job := compileJob{
		Engine:     engine,
		ExportName: exportName,
		Extension:  extension,
		Sources:    args,
		KeepGoing:  keepGoing,
	}
	result, err := job.run(cmd.Context(), slog.Default())
	if err != nil {
		return err
	}
	if err := writeFiles(cmd.Context(), out, result.Files, cmd.OutOrStdout()); err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d template(s) failed to compile", result.Failed)
	}
	return nil
}
