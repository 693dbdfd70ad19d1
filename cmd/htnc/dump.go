package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/compiler"
	"github.com/alexshafranov/derplanner-sub000/pkg/ioctx"
)

func dumpCmd(cfg *Config) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "dump [flags] file",
		Short: "Print the compiled tree of a domain",
		Long: `Dump compiles a file and prints its tree with inferred types. When
compilation fails the tree is printed as far as it got, followed by the
diagnostics.`,
		Example: `  htnc dump travel.htn
  htnc dump --raw travel.htn`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), *cfg, args[0], raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print node records with locations instead of the indented tree")

	return cmd
}

func runDump(ctx context.Context, cfg Config, path string, raw bool) error {
	settings, err := loadSettings(cfg)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	res := compiler.Compile(path, string(src), compiler.OptionsFrom(settings))

	stdout := ioctx.Stdout(ctx)
	if raw {
		_, err = pretty.Fprintf(stdout, "%# v\n", ast.Export(res.Tree.Root))
	} else {
		err = ast.Print(stdout, res.Tree.Root)
	}
	if err != nil {
		return err
	}

	if !res.OK() {
		fmt.Fprint(ioctx.Stderr(ctx), formatter(settings, string(src)).FormatAll(res.Diagnostics))
		return errors.Errorf("%s: compilation stopped in %s", path, res.Reached)
	}
	return nil
}
