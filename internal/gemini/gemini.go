// Package gemini implements [provider.Client] on top of the official genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
	"google.golang.org/genai"
)

var _ provider.Client = &Client{}

// Config represents the configuration for the SDK client.
type Config struct {
	APIKey           string
	BaseURL          string
	HTTPClient       *http.Client
	ThinkingBudget   int
	DisableStreaming bool
}

// Client wraps a genai client.
type Client struct {
	*genai.Client
	config Config
}

// New creates a new Client with the given configuration.
func New(ctx context.Context, config Config) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
	}
	if config.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Client{Client: client, config: config}, nil
}

// ListModels implements provider.Client.
func (c *Client) ListModels(ctx context.Context) ([]proto.ModelInfo, error) {
	var result []proto.ModelInfo
	for model, err := range c.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", toAPIError(err))
		}
		result = append(result, proto.ModelInfo{
			Name:                       model.Name,
			DisplayName:                model.DisplayName,
			SupportedGenerationMethods: model.SupportedActions,
		})
	}
	return result, nil
}

// Probe implements provider.Client.
func (c *Client) Probe(ctx context.Context, model string) error {
	_, err := c.Models.GenerateContent(
		ctx,
		model,
		genai.Text("Ping"),
		&genai.GenerateContentConfig{MaxOutputTokens: 1},
	)
	if err != nil {
		return fmt.Errorf("probe %s: %w", model, toAPIError(err))
	}
	return nil
}

// Generate implements provider.Client.
func (c *Client) Generate(ctx context.Context, request proto.Request) (proto.Response, error) {
	resp, err := c.Models.GenerateContent(
		ctx,
		request.Model,
		fromProtoMessages(request.Messages),
		c.generateConfig(request),
	)
	if err != nil {
		return proto.Response{}, toAPIError(err)
	}
	return toProtoResponse(request.Model, resp)
}

// Stream implements provider.Client.
func (c *Client) Stream(ctx context.Context, request proto.Request) provider.Stream {
	if c.config.DisableStreaming {
		return provider.NewNonStreaming(ctx, request, c.Generate)
	}
	seq := c.Models.GenerateContentStream(
		ctx,
		request.Model,
		fromProtoMessages(request.Messages),
		c.generateConfig(request),
	)
	return newStream(seq)
}

func (c *Client) generateConfig(request proto.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		StopSequences: request.Stop,
	}
	if request.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(request.System, genai.RoleUser)
	}
	if request.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*request.Temperature))
	}
	if request.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*request.TopP))
	}
	if request.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*request.TopK))
	}
	if request.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*request.MaxTokens) //nolint:gosec
	}
	if c.config.ThinkingBudget != 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(c.config.ThinkingBudget)), //nolint:gosec
		}
	}
	if request.Grounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// Stream adapts the SDK's response iterator to [provider.Stream].
type Stream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	done    bool
	err     error
	current *genai.GenerateContentResponse
}

func newStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *Stream {
	next, stop := iter.Pull2(seq)
	return &Stream{next: next, stop: stop}
}

// Next implements provider.Stream.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	resp, err, ok := s.next()
	if !ok {
		s.done = true
		return false
	}
	if err != nil {
		s.err = toAPIError(err)
		s.done = true
		return false
	}
	s.current = resp
	return true
}

// Current implements provider.Stream.
func (s *Stream) Current() (proto.Chunk, error) {
	if s.current == nil {
		return proto.Chunk{}, provider.ErrNoContent
	}
	out := proto.Chunk{Content: s.current.Text()}
	if len(s.current.Candidates) > 0 {
		out.Sources = toProtoSources(s.current.Candidates[0].GroundingMetadata)
	}
	if out.Content == "" && len(out.Sources) == 0 {
		return proto.Chunk{}, provider.ErrNoContent
	}
	return out, nil
}

// Err implements provider.Stream.
func (s *Stream) Err() error { return s.err }

// Close implements provider.Stream.
func (s *Stream) Close() error {
	s.stop()
	s.done = true
	return nil
}

func toAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &provider.APIError{
			StatusCode: apiErr.Code,
			Status:     apiErr.Status,
			Message:    apiErr.Message,
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &provider.APIError{
			StatusCode: apiErrPtr.Code,
			Status:     apiErrPtr.Status,
			Message:    apiErrPtr.Message,
		}
	}
	return err
}
