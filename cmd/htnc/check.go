package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alexshafranov/derplanner-sub000/pkg/compiler"
	"github.com/alexshafranov/derplanner-sub000/pkg/ioctx"
)

// Ext is the extension of domain sources.
const Ext = ".htn"

func checkCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path...]",
		Short: "Check domain sources for errors",
		Long: `Check compiles each file and reports its diagnostics on stderr.
Directories are searched for .htn files. The exit status is non-zero
if any file has diagnostics.`,
		Example: `  htnc check travel.htn
  htnc check --color=never ./domains`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), *cfg, args)
		},
	}
}

// collectFiles expands directories into the sources they contain.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "accessing %s", path)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading directory %s", path)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), Ext) {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}
	return files, nil
}

func runCheck(ctx context.Context, cfg Config, paths []string) error {
	settings, err := loadSettings(cfg)
	if err != nil {
		return err
	}
	files, err := collectFiles(paths)
	if err != nil {
		return err
	}
	opts := compiler.OptionsFrom(settings)

	// one session per file, reported in argument order
	results := make([]compiler.Result, len(files))
	sources := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrapf(err, "reading %s", file)
			}
			sources[i] = string(src)
			results[i] = compiler.Compile(file, sources[i], opts)
			countResult(results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stdout, stderr := ioctx.Stdout(ctx), ioctx.Stderr(ctx)
	failed := 0
	for i, res := range results {
		if res.OK() {
			fmt.Fprintf(stdout, "%s: ok\n", files[i])
			continue
		}
		failed++
		fmt.Fprint(stderr, formatter(settings, sources[i]).FormatAll(res.Diagnostics))
	}
	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
