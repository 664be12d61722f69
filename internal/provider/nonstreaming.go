package provider

import (
	"context"

	"github.com/antoto2021/nexus/internal/proto"
)

// NonStreaming wraps a single [proto.Response] to implement [Stream].
type NonStreaming struct {
	response proto.Response
	err      error
	consumed bool
}

// NewNonStreaming runs generate and wraps its result as a one-chunk stream.
func NewNonStreaming(
	ctx context.Context,
	request proto.Request,
	generate func(context.Context, proto.Request) (proto.Response, error),
) *NonStreaming {
	resp, err := generate(ctx, request)
	return &NonStreaming{response: resp, err: err}
}

// Next implements Stream.
func (w *NonStreaming) Next() bool {
	if w.consumed {
		return false
	}
	w.consumed = true
	return w.err == nil
}

// Current implements Stream.
func (w *NonStreaming) Current() (proto.Chunk, error) {
	if w.err != nil {
		return proto.Chunk{}, w.err
	}
	if w.response.Content == "" {
		return proto.Chunk{}, ErrNoContent
	}
	return proto.Chunk{Content: w.response.Content, Sources: w.response.Sources}, nil
}

// Close implements Stream.
func (w *NonStreaming) Close() error { return nil }

// Err implements Stream.
func (w *NonStreaming) Err() error { return w.err }

// Response returns the wrapped response.
func (w *NonStreaming) Response() proto.Response { return w.response }
