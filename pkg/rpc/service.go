// Package rpc serves the compiler over JSON-RPC 2.0.
//
// Two methods are exposed. Compile checks a source text and returns its
// diagnostics. Dump returns the debug print of the compiled tree.
package rpc

import (
	"context"
	"io"
	"log/slog"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/pkg/errors"

	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/compiler"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
)

// DefaultFilename names sources submitted without a filename.
const DefaultFilename = "input.htn"

// SourceParams are the parameters of both methods.
type SourceParams struct {
	Filename string `json:"filename,omitempty"`
	Source   string `json:"source"`
}

// Diagnostic is the wire form of diag.Diagnostic.
type Diagnostic struct {
	Code    string `json:"code"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// CompileResult is the result of Compile.
type CompileResult struct {
	OK          bool         `json:"ok"`
	Phase       string       `json:"phase"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	// Tasks lists the inferred task signatures of a successful compile.
	Tasks []string `json:"tasks,omitempty"`
}

// DumpResult is the result of Dump.
type DumpResult struct {
	Tree        string        `json:"tree"`
	Nodes       *ast.Exported `json:"nodes,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// Service compiles each request in its own session.
type Service struct {
	opts compiler.Options
}

// NewService returns a service compiling with opts.
func NewService(opts compiler.Options) *Service {
	return &Service{opts: opts}
}

// Methods is the method table for a jrpc2 server.
func (s *Service) Methods() handler.Map {
	return handler.Map{
		"Compile": handler.New(s.Compile),
		"Dump":    handler.New(s.Dump),
	}
}

func (s *Service) compile(ctx context.Context, p SourceParams) (compiler.Result, error) {
	if p.Source == "" {
		return compiler.Result{}, jrpc2.Errorf(jrpc2.InvalidParams, "missing source")
	}
	if p.Filename == "" {
		p.Filename = DefaultFilename
	}
	res := compiler.Compile(p.Filename, p.Source, s.opts)
	slog.DebugContext(ctx, "compiled request",
		"file", p.Filename,
		"phase", res.Reached,
		"diagnostics", len(res.Diagnostics))
	return res, nil
}

// Compile checks the source.
func (s *Service) Compile(ctx context.Context, p SourceParams) (*CompileResult, error) {
	res, err := s.compile(ctx, p)
	if err != nil {
		return nil, err
	}
	out := &CompileResult{
		OK:          res.OK(),
		Phase:       res.Reached.String(),
		Diagnostics: wireDiagnostics(res.Diagnostics),
	}
	if res.OK() {
		out.Tasks = compiler.TaskSignatures(res.Tree)
	}
	return out, nil
}

// Dump compiles the source and prints the resulting tree, which is partial
// when compilation stopped early.
func (s *Service) Dump(ctx context.Context, p SourceParams) (*DumpResult, error) {
	res, err := s.compile(ctx, p)
	if err != nil {
		return nil, err
	}
	return &DumpResult{
		Tree:        ast.Sprint(res.Tree.Root),
		Nodes:       ast.Export(res.Tree.Root),
		Diagnostics: wireDiagnostics(res.Diagnostics),
	}, nil
}

func wireDiagnostics(ds []diag.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(ds))
	for i, d := range ds {
		out[i] = Diagnostic{
			Code:    d.Kind.Code(),
			Line:    d.Loc.Line,
			Column:  d.Loc.Column,
			Message: d.Message(),
		}
	}
	return out
}

// Serve answers newline-delimited requests read from r until r is
// exhausted or ctx is done.
func Serve(ctx context.Context, svc *Service, r io.Reader, w io.WriteCloser) error {
	srv := jrpc2.NewServer(svc.Methods(), &jrpc2.ServerOptions{
		Logger: func(text string) { slog.Debug(text) },
	})
	srv.Start(channel.Line(r, w))
	slog.InfoContext(ctx, "compile service started")

	done := make(chan error, 1)
	go func() { done <- srv.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		srv.Stop()
		err = <-done
	}
	if err == nil || errors.Is(err, io.EOF) || channel.IsErrClosing(err) || ctx.Err() != nil {
		slog.InfoContext(ctx, "compile service stopped")
		return nil
	}
	return errors.Wrap(err, "compile service")
}
