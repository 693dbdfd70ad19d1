// Package ioctx carries the standard streams through a context, so commands
// and the compile service can be pointed at buffers.
package ioctx

import (
	"context"
	"io"
	"strings"
)

type streamsKey struct{}

// Streams are the input and outputs of one invocation.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// With returns a context carrying s.
func With(ctx context.Context, s Streams) context.Context {
	return context.WithValue(ctx, streamsKey{}, s)
}

// From returns the streams in ctx. Missing outputs discard and a missing
// input is empty.
func From(ctx context.Context) Streams {
	s, _ := ctx.Value(streamsKey{}).(Streams)
	if s.In == nil {
		s.In = strings.NewReader("")
	}
	if s.Out == nil {
		s.Out = io.Discard
	}
	if s.Err == nil {
		s.Err = io.Discard
	}
	return s
}

// Stdout is From(ctx).Out.
func Stdout(ctx context.Context) io.Writer {
	return From(ctx).Out
}

// Stderr is From(ctx).Err.
func Stderr(ctx context.Context) io.Writer {
	return From(ctx).Err
}
