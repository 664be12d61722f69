// Package router picks a working model for a key and falls back along a
// chain of models when a request fails.
package router

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/charmbracelet/log"
)

// DefaultFallbackModels is used when discovery fails or reports nothing.
var DefaultFallbackModels = []string{
	"gemini-2.0-flash-exp",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

var (
	// ErrNoWorkingModel is returned by Scan when no candidate answered a probe.
	ErrNoWorkingModel = errors.New("no working model found")
	// ErrNoModels is returned when asked to generate with an empty chain.
	ErrNoModels = errors.New("no models to try")
)

// Attempt is a failed call against one model.
type Attempt struct {
	Model string
	Err   error
}

// ExhaustedError is returned when every model in the chain failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Model, a.Err))
	}
	return fmt.Sprintf("all %d models failed (%s)", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap returns the error of the last attempt.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Router routes requests to models.
type Router struct {
	client    provider.Client
	fallbacks []string
	logger    *log.Logger
}

// New creates a new Router.
func New(client provider.Client, fallbacks []string, logger *log.Logger) *Router {
	if len(fallbacks) == 0 {
		fallbacks = DefaultFallbackModels
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		client:    client,
		fallbacks: slices.Clone(fallbacks),
		logger:    logger.WithPrefix("router"),
	}
}

// Fallbacks returns the fixed fallback models.
func (r *Router) Fallbacks() []string {
	return slices.Clone(r.fallbacks)
}

// CandidateList is the outcome of model discovery.
type CandidateList struct {
	Models       []string
	FromFallback bool
}

// Candidates lists the models able to generate content, newest names first.
// The fixed fallback list is used when listing fails or yields nothing.
func (r *Router) Candidates(ctx context.Context) CandidateList {
	infos, err := r.client.ListModels(ctx)
	if err != nil {
		r.logger.Debug("could not list models, using fallback list", "err", err)
		return CandidateList{Models: r.Fallbacks(), FromFallback: true}
	}

	var models []string
	for _, info := range infos {
		if !info.CanGenerate() {
			continue
		}
		models = append(models, info.ID())
	}
	if len(models) == 0 {
		r.logger.Debug("no generative model listed, using fallback list")
		return CandidateList{Models: r.Fallbacks(), FromFallback: true}
	}

	slices.Sort(models)
	slices.Reverse(models)
	return CandidateList{Models: slices.Compact(models)}
}

// Probe is the outcome of probing one model.
type Probe struct {
	Model string
	Index int
	Total int
	Err   error
}

// OK reports whether the model answered.
func (p Probe) OK() bool { return p.Err == nil }

// ScanOptions tunes a scan.
type ScanOptions struct {
	// ProbeAll keeps probing after the first working model.
	ProbeAll bool
	// OnProbe is called after each probe.
	OnProbe func(Probe)
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	Active       string
	Validated    []string
	Tested       int
	Candidates   int
	FromFallback bool
}

// Scan discovers candidates and probes them one at a time.
func (r *Router) Scan(ctx context.Context, opts ScanOptions) (ScanResult, error) {
	candidates := r.Candidates(ctx)
	result := ScanResult{
		Candidates:   len(candidates.Models),
		FromFallback: candidates.FromFallback,
	}

	for i, model := range candidates.Models {
		if ctx.Err() != nil {
			break
		}

		err := r.client.Probe(ctx, model)
		result.Tested++
		probe := Probe{
			Model: model,
			Index: i + 1,
			Total: len(candidates.Models),
			Err:   err,
		}
		if opts.OnProbe != nil {
			opts.OnProbe(probe)
		}
		if err != nil {
			r.logger.Debug("probe failed", "model", model, "err", err)
			continue
		}

		r.logger.Debug("probe succeeded", "model", model)
		result.Validated = append(result.Validated, model)
		if result.Active == "" {
			result.Active = model
		}
		if !opts.ProbeAll {
			break
		}
	}

	// a model that answered before the deadline is still a result
	if result.Active != "" {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return result, err //nolint:wrapcheck
	}
	return result, ErrNoWorkingModel
}

// Chain returns the ordered, de-duplicated list of models to try: the active
// model, then the validated models, then the fixed fallbacks.
func (r *Router) Chain(active string, validated []string) []string {
	seen := map[string]bool{}
	var chain []string
	add := func(model string) {
		model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
		if model == "" || seen[model] {
			return
		}
		seen[model] = true
		chain = append(chain, model)
	}
	add(active)
	for _, m := range validated {
		add(m)
	}
	for _, m := range r.fallbacks {
		add(m)
	}
	return chain
}

// Generate tries each model of the chain in order and returns the first
// successful response.
func (r *Router) Generate(ctx context.Context, request proto.Request, chain []string) (proto.Response, error) {
	if len(chain) == 0 {
		return proto.Response{}, ErrNoModels
	}

	var attempts []Attempt
	for _, model := range chain {
		if err := ctx.Err(); err != nil {
			return proto.Response{}, err //nolint:wrapcheck
		}

		resp, err := r.client.Generate(ctx, request.WithModel(model))
		if err == nil {
			if resp.Model == "" {
				resp.Model = model
			}
			if len(attempts) > 0 {
				r.logger.Info("answered by fallback model", "model", model, "failed", len(attempts))
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return proto.Response{}, ctx.Err() //nolint:wrapcheck
		}

		r.logger.Warn("model failed, trying next", "model", model, "err", err)
		attempts = append(attempts, Attempt{Model: model, Err: err})
	}
	return proto.Response{}, &ExhaustedError{Attempts: attempts}
}

// Stream opens a stream on the first model of the chain that accepts the
// request. The model only changes while opening: once a chunk was read the
// stream is returned as is.
func (r *Router) Stream(ctx context.Context, request proto.Request, chain []string) (*Stream, error) {
	if len(chain) == 0 {
		return nil, ErrNoModels
	}

	var attempts []Attempt
	for _, model := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck
		}

		stream := r.client.Stream(ctx, request.WithModel(model))
		first, ok, err := firstChunk(stream)
		if err == nil {
			return &Stream{
				Stream: stream,
				Model:  model,
				first:  first,
				ready:  ok,
			}, nil
		}
		_ = stream.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err() //nolint:wrapcheck
		}

		r.logger.Warn("model failed to stream, trying next", "model", model, "err", err)
		attempts = append(attempts, Attempt{Model: model, Err: err})
	}
	return nil, &ExhaustedError{Attempts: attempts}
}

// firstChunk reads until the first chunk with content, the end of the stream,
// or an error.
func firstChunk(stream provider.Stream) (proto.Chunk, bool, error) {
	for stream.Next() {
		chunk, err := stream.Current()
		if errors.Is(err, provider.ErrNoContent) {
			continue
		}
		if err != nil {
			return proto.Chunk{}, false, err
		}
		return chunk, true, nil
	}
	if err := stream.Err(); err != nil {
		return proto.Chunk{}, false, err //nolint:wrapcheck
	}
	return proto.Chunk{}, false, provider.ErrNoContent
}

// Stream is an opened stream along with the model serving it.
type Stream struct {
	provider.Stream
	Model string

	first proto.Chunk
	ready bool
}

// Next implements provider.Stream.
func (s *Stream) Next() bool {
	if s.ready {
		return true
	}
	return s.Stream.Next()
}

// Current implements provider.Stream.
func (s *Stream) Current() (proto.Chunk, error) {
	if s.ready {
		s.ready = false
		return s.first, nil
	}
	return s.Stream.Current() //nolint:wrapcheck
}
