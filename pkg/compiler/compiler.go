// Package compiler runs the front-end passes over one source file: parse,
// inline macros, normalize preconditions, annotate and infer types.
//
// Every pass reports problems to a shared diag.Collector. A pass that adds
// diagnostics stops the pipeline, so later passes only ever see trees the
// earlier ones accepted.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"github.com/alexshafranov/derplanner-sub000/pkg/annotate"
	"github.com/alexshafranov/derplanner-sub000/pkg/arena"
	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/config"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/funcs"
	"github.com/alexshafranov/derplanner-sub000/pkg/infer"
	"github.com/alexshafranov/derplanner-sub000/pkg/inline"
	"github.com/alexshafranov/derplanner-sub000/pkg/normalize"
	"github.com/alexshafranov/derplanner-sub000/pkg/parser"
	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

// Options tunes a compilation.
type Options struct {
	// MaxClauses bounds the DNF of a single precondition. Zero means
	// unbounded.
	MaxClauses int
	// DisabledIntrinsics are removed from the builtin function table.
	DisabledIntrinsics []string
}

// OptionsFrom maps a loaded config onto compile options.
func OptionsFrom(c *config.Config) Options {
	if c == nil {
		c = config.Default()
	}
	return Options{
		MaxClauses:         c.MaxDNFClauses,
		DisabledIntrinsics: slices.Clone(c.Intrinsics.Disable),
	}
}

// Phase identifies a pass of the pipeline.
type Phase uint8

const (
	PhaseParse Phase = iota
	PhaseInline
	PhaseNormalize
	PhaseAnnotate
	PhaseInfer
)

var phaseNames = [...]string{
	PhaseParse:     "parse",
	PhaseInline:    "inline",
	PhaseNormalize: "normalize",
	PhaseAnnotate:  "annotate",
	PhaseInfer:     "infer",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Session owns the state of one compilation: the tree, the diagnostics and
// the scratch stacks the passes share. A Session compiles a single file.
type Session struct {
	Tree  *ast.Tree
	Diags *diag.Collector
	Funcs *funcs.Table

	opts  Options
	nodes *arena.Stack[*ast.Node]
	tags  *arena.Stack[types.Tag]
}

// NewSession prepares a session with the builtin intrinsics minus the
// disabled ones.
func NewSession(opts Options) *Session {
	table := funcs.Builtins()
	for _, name := range opts.DisabledIntrinsics {
		if !table.Has(name) {
			slog.Warn("cannot disable unknown intrinsic", "name", name)
			continue
		}
		table.Remove(name)
	}
	return &Session{
		Tree:  ast.NewTree(),
		Diags: &diag.Collector{},
		Funcs: table,
		opts:  opts,
		nodes: arena.NewStack[*ast.Node](64),
		tags:  arena.NewStack[types.Tag](64),
	}
}

// Result is the outcome of a compilation.
type Result struct {
	Filename string
	Tree     *ast.Tree
	// Diagnostics are sorted by location with duplicates removed.
	Diagnostics []diag.Diagnostic
	// Reached is the last phase that ran.
	Reached Phase
}

// OK reports whether the compilation produced no diagnostics.
func (r Result) OK() bool {
	return len(r.Diagnostics) == 0
}

// Err returns the diagnostics as a *diag.Errors, or nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &diag.Errors{Diagnostics: r.Diagnostics}
}

// Compile runs a fresh session over source.
func Compile(filename, source string, opts Options) Result {
	return NewSession(opts).Compile(filename, source)
}

// Compile runs the pipeline over source, stopping after the first phase
// that reports anything.
func (s *Session) Compile(filename, source string) Result {
	res := Result{Filename: filename, Tree: s.Tree}

	phases := []struct {
		phase Phase
		run   func() bool
	}{
		{PhaseParse, func() bool { return s.parse(filename, source) }},
		{PhaseInline, func() bool { return inline.Run(s.Tree, s.Diags, s.nodes) }},
		{PhaseNormalize, s.normalize},
		{PhaseAnnotate, func() bool { return annotate.Run(s.Tree, s.Diags, s.nodes) }},
		{PhaseInfer, func() bool { return infer.Run(s.Tree, s.Funcs, s.Diags, s.tags) }},
	}

	start := time.Now()
	for _, p := range phases {
		before := s.Diags.Len()
		t0 := time.Now()
		ok := p.run()
		res.Reached = p.phase
		slog.Debug("phase finished",
			"file", filename,
			"phase", p.phase,
			"diagnostics", s.Diags.Len()-before,
			"took", time.Since(t0))
		if !ok || s.Diags.Len() > before {
			break
		}
	}

	res.Diagnostics = s.Diags.Sorted()
	slog.Debug("compiled",
		"file", filename,
		"nodes", s.Tree.NodeCount(),
		"diagnostics", len(res.Diagnostics),
		"took", time.Since(start))
	if res.OK() && slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("task signatures", "file", filename, "tasks", pretty.Sprint(TaskSignatures(s.Tree)))
	}
	return res
}

func (s *Session) parse(filename, source string) bool {
	err := parser.Parse(s.Tree, filename, source)
	if err == nil {
		return true
	}
	var perr *parser.Error
	if errors.As(err, &perr) {
		s.Diags.Add(diag.Syntax, perr.Loc, diag.Group(perr.Msg))
	} else {
		s.Diags.Add(diag.Syntax, diag.Location{Filename: filename}, diag.Group(err.Error()))
	}
	return false
}

// normalize rewrites every case precondition into DNF.
func (s *Session) normalize() bool {
	dom := s.Tree.DomainNode()
	if dom == nil {
		return true
	}
	opts := normalize.Options{MaxClauses: s.opts.MaxClauses}
	ok := true
	clauses := 0
	for task := range dom.Children() {
		if task.Kind != ast.KindTask {
			continue
		}
		for _, c := range ast.ChildrenOf(task, ast.KindCase) {
			cs := c.Case()
			if cs.Precond == nil {
				continue
			}
			dnf, err := normalize.ConvertToDNF(s.Tree, cs.Precond, opts)
			cs.Precond = dnf
			if errors.Is(err, normalize.ErrTooManyClauses) {
				s.Diags.Add(diag.TooManyClauses, c.Loc, diag.Name(task.Name()))
				ok = false
				continue
			}
			clauses += dnf.ChildCount()
		}
	}
	slog.Debug("normalized preconditions", "clauses", clauses)
	return ok
}

// TaskSignatures lists every task as name(param types...), sorted.
func TaskSignatures(t *ast.Tree) []string {
	dom := t.DomainNode()
	if dom == nil {
		return nil
	}
	var sigs []string
	for _, task := range ast.ChildrenOf(dom, ast.KindTask) {
		var params []string
		for _, p := range ast.ChildrenOf(task, ast.KindParam) {
			params = append(params, p.Type.Name())
		}
		sigs = append(sigs, task.Name()+"("+strings.Join(params, ", ")+")")
	}
	slices.Sort(sigs)
	return sigs
}
