package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-xjst/pkg/stream"
)

const noManifestMessage = "no " + manifestName + " found\nplease pass one explicitly, e.g.:\n  xjst build --manifest path/to/" + manifestName

var buildCmd = &cobra.Command{
	Use:   "build [flags] [target]...",
	Short: "Build the targets declared in xjst.toml",
	Long:  "Build compiles and renders every [[target]] of xjst.toml, or only the named ones.",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().String("manifest", "", "path to xjst.toml (default: search upwards from the working directory)")
	buildCmd.Flags().Int("jobs", runtime.NumCPU(), "number of targets built in parallel")
}

func runBuild(cmd *cobra.Command, args []string) error {
	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}

	if manifestPath == "" {
		found, ok, err := findManifest(".")
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(noManifestMessage)
		}
		manifestPath = found
	}
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}

	targets, err := selectTargets(manifest.Targets, args)
	if err != nil {
		return err
	}
	return buildTargets(cmd.Context(), slog.Default(), targets, jobs, cmd.OutOrStdout())
}

func selectTargets(all []buildTarget, names []string) ([]buildTarget, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]buildTarget, len(all))
	for _, t := range all {
		byName[t.Name] = t
	}
	out := make([]buildTarget, 0, len(names))
	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// buildTargets runs independent targets concurrently; each target is still
// a sequential pipeline.
func buildTargets(ctx context.Context, logger *slog.Logger, targets []buildTarget, jobs int, out io.Writer) error {
	if jobs < 1 {
		jobs = 1
	}
	var mu sync.Mutex
	syncOut := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return out.Write(p)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(targets), 1)))
	for _, t := range targets {
		g.Go(func() error {
			if err := runTarget(gctx, logger.With("target", t.Name), t, syncOut); err != nil {
				return fmt.Errorf("target %s: %w", t.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func runTarget(ctx context.Context, logger *slog.Logger, t buildTarget, out io.Writer) error {
	job := compileJob{
		Engine:     t.Engine,
		ExportName: t.ExportName,
		Extension:  t.Extension,
		Sources:    t.Sources,
		KeepGoing:  t.KeepGoing,
	}
	result, err := job.run(ctx, logger)
	if err != nil {
		return err
	}
	if err := writeFiles(ctx, t.Out, result.Files, out); err != nil {
		return err
	}
	logger.Info("compiled", "files", len(result.Files), "failed", result.Failed)

	if t.HTML != nil {
		html := htmlJob{Data: t.HTML.Data, Sanitize: t.HTML.Sanitize}
		files, err := html.run(ctx, logger, stream.FromFiles(result.Files...))
		if err != nil {
			return err
		}
		if err := writeFiles(ctx, t.HTML.Out, files, out); err != nil {
			return err
		}
		logger.Info("rendered", "files", len(files))
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d template(s) failed to compile", result.Failed)
	}
	return nil
}

type writerFunc func(p []byte) (int, error)

func (fn writerFunc) Write(p []byte) (int, error) {
	return fn(p)
}
