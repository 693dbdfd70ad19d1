package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexshafranov/derplanner-sub000/pkg/compiler"
	"github.com/alexshafranov/derplanner-sub000/pkg/ioctx"
	"github.com/alexshafranov/derplanner-sub000/pkg/rpc"
)

func serveCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve compile requests over JSON-RPC on stdin/stdout",
		Long: `Serve reads newline-delimited JSON-RPC 2.0 requests from stdin and
writes responses to stdout. The methods are Compile and Dump, both taking
{"filename": ..., "source": ...}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}
}

func runServe(ctx context.Context, cfg Config) error {
	settings, err := loadSettings(cfg)
	if err != nil {
		return err
	}
	streams := ioctx.From(ctx)
	svc := rpc.NewService(compiler.OptionsFrom(settings))
	return rpc.Serve(ctx, svc, streams.In, nopCloser{streams.Out})
}

// nopCloser keeps the service from closing the process's stdout.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
