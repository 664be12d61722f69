// Package google implements [provider.Client] for the Generative Language REST API.
package google

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
)

var _ provider.Client = &Client{}

const (
	emptyMessagesLimit uint = 300
	listPageSize            = 100

	// DefaultBaseURL is the public v1beta endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	pingText = "Ping"
)

var (
	googleHeaderData = []byte("data: ")
	errorPrefix      = []byte(`event: error`)
)

// Config represents the configuration for the Google API client.
type Config struct {
	BaseURL        string
	APIKey         string
	HTTPClient     *http.Client
	ThinkingBudget int

	// DisableStreaming makes Stream fetch the whole reply with
	// generateContent and hand it back as a single chunk.
	DisableStreaming bool
}

// DefaultConfig returns the default configuration for the Google API client.
func DefaultConfig(authToken string) Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		APIKey:     authToken,
		HTTPClient: &http.Client{},
	}
}

// Part is a datatype containing media that is part of a multi-part Content message.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content is the base structured datatype containing multi-part content of a message.
type Content struct {
	Parts []Part `json:"parts,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ThinkingConfig - for more details see https://ai.google.dev/gemini-api/docs/thinking#rest .
type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget,omitempty"`
}

// GenerationConfig are the options for model generation and outputs. Not all parameters are configurable for every model.
type GenerationConfig struct {
	StopSequences    []string        `json:"stopSequences,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	CandidateCount   uint            `json:"candidateCount,omitempty"`
	MaxOutputTokens  uint            `json:"maxOutputTokens,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"topP,omitempty"`
	TopK             *int64          `json:"topK,omitempty"`
	ThinkingConfig   *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// GoogleSearch asks the service to ground the answer with live search results.
type GoogleSearch struct{}

// Tool is a tool the model may use.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"google_search,omitempty"`
}

// MessageCompletionRequest represents the valid parameters and value options for the request.
type MessageCompletionRequest struct {
	Contents          []Content         `json:"contents,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

// RequestBuilder is an interface for building HTTP requests for the Google API.
type RequestBuilder interface {
	Build(ctx context.Context, method, url string, body any, header http.Header) (*http.Request, error)
}

// NewRequestBuilder creates a new HTTPRequestBuilder.
func NewRequestBuilder() *HTTPRequestBuilder {
	return &HTTPRequestBuilder{
		marshaller: &JSONMarshaller{},
	}
}

// Client is a client for the Google API.
type Client struct {
	config Config

	requestBuilder RequestBuilder
	unmarshaler    Unmarshaler
}

// New creates a new Client with the given configuration.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Client{
		config:         config,
		requestBuilder: NewRequestBuilder(),
		unmarshaler:    &JSONUnmarshaler{},
	}
}

// ListModels implements provider.Client.
func (c *Client) ListModels(ctx context.Context) ([]proto.ModelInfo, error) {
	var result []proto.ModelInfo
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("pageSize", fmt.Sprint(listPageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		var page ListModelsResponse
		if err := c.do(ctx, http.MethodGet, c.url("/models", params), nil, &page); err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		for _, m := range page.Models {
			result = append(result, proto.ModelInfo{
				Name:                       m.Name,
				DisplayName:                m.DisplayName,
				SupportedGenerationMethods: m.SupportedGenerationMethods,
			})
		}
		if page.NextPageToken == "" {
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

// Probe implements provider.Client.
func (c *Client) Probe(ctx context.Context, model string) error {
	body := MessageCompletionRequest{
		Contents: []Content{{Parts: []Part{{Text: pingText}}}},
		GenerationConfig: &GenerationConfig{
			MaxOutputTokens: 1,
		},
	}
	var resp CompletionMessageResponse
	if err := c.do(ctx, http.MethodPost, c.modelURL(model, "generateContent", nil), body, &resp); err != nil {
		return fmt.Errorf("probe %s: %w", model, err)
	}
	return resp.err()
}

// Generate implements provider.Client.
func (c *Client) Generate(ctx context.Context, request proto.Request) (proto.Response, error) {
	var resp CompletionMessageResponse
	if err := c.do(
		ctx,
		http.MethodPost,
		c.modelURL(request.Model, "generateContent", nil),
		c.requestBody(request),
		&resp,
	); err != nil {
		return proto.Response{}, err
	}
	if err := resp.err(); err != nil {
		return proto.Response{}, err
	}
	return toProtoResponse(request.Model, resp)
}

// Stream implements provider.Client.
func (c *Client) Stream(ctx context.Context, request proto.Request) provider.Stream {
	if c.config.DisableStreaming {
		return provider.NewNonStreaming(ctx, request, c.Generate)
	}
	params := url.Values{}
	params.Set("alt", "sse")
	req, err := c.newRequest(
		ctx,
		http.MethodPost,
		c.modelURL(request.Model, "streamGenerateContent", params),
		withBody(c.requestBody(request)),
	)
	if err != nil {
		return &Stream{err: err, isFinished: true}
	}

	stream, err := googleSendRequestStream(c, req)
	if err != nil {
		return &Stream{err: err, isFinished: true}
	}
	return stream
}

func (c *Client) requestBody(request proto.Request) MessageCompletionRequest {
	body := MessageCompletionRequest{
		Contents: fromProtoMessages(request.Messages),
		GenerationConfig: &GenerationConfig{
			CandidateCount: 1,
			StopSequences:  request.Stop,
			Temperature:    request.Temperature,
			TopP:           request.TopP,
			TopK:           request.TopK,
		},
	}
	if request.System != "" {
		body.SystemInstruction = &Content{Parts: []Part{{Text: request.System}}}
	}
	if request.MaxTokens != nil {
		body.GenerationConfig.MaxOutputTokens = uint(*request.MaxTokens) //nolint:gosec
	}
	if c.config.ThinkingBudget != 0 {
		body.GenerationConfig.ThinkingConfig = &ThinkingConfig{
			ThinkingBudget: c.config.ThinkingBudget,
		}
	}
	if request.Grounding {
		body.Tools = []Tool{{GoogleSearch: &GoogleSearch{}}}
	}
	return body
}

func (c *Client) url(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.config.APIKey)
	return c.config.BaseURL + path + "?" + params.Encode()
}

func (c *Client) modelURL(model, method string, params url.Values) string {
	return c.url(fmt.Sprintf("/models/%s:%s", url.PathEscape(model), method), params)
}

func (c *Client) newRequest(ctx context.Context, method, url string, setters ...requestOption) (*http.Request, error) {
	// Default Options
	args := &requestOptions{
		header: make(http.Header),
	}
	for _, setter := range setters {
		setter(args)
	}
	req, err := c.requestBuilder.Build(ctx, method, url, args.body, args.header)
	if err != nil {
		return new(http.Request), err
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var setters []requestOption
	if body != nil {
		setters = append(setters, withBody(body))
	}
	req, err := c.newRequest(ctx, method, url, setters...)
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer resp.Body.Close() //nolint:errcheck

	if isFailureStatusCode(resp) {
		return c.handleErrorResp(resp)
	}
	bts, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return c.unmarshaler.Unmarshal(bts, out)
}

func (c *Client) handleErrorResp(resp *http.Response) error {
	var errRes ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errRes); err != nil || errRes.Error == nil {
		msg := http.StatusText(resp.StatusCode)
		if err != nil {
			msg = err.Error()
		}
		return &provider.APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	return errRes.Error.toAPIError(resp.StatusCode)
}

// ErrorDetail is the error object of the API.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *ErrorDetail) toAPIError(statusCode int) *provider.APIError {
	if e.Code != 0 {
		statusCode = e.Code
	}
	return &provider.APIError{
		StatusCode: statusCode,
		Status:     e.Status,
		Message:    e.Message,
	}
}

// ErrorResponse wraps an error object.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
}

// Model is a model as listed by the API.
type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods,omitempty"`
}

// ListModelsResponse is a page of models.
type ListModelsResponse struct {
	Models        []Model `json:"models"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// WebSource is a grounding web page.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk is a piece of grounding evidence.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// GroundingMetadata is returned when grounding was enabled.
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// Candidate represents a response candidate generated from the model.
type Candidate struct {
	Content           Content            `json:"content,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
	TokenCount        uint               `json:"tokenCount,omitempty"`
	Index             uint               `json:"index,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// CompletionMessageResponse represents a response to an Google completion message.
type CompletionMessageResponse struct {
	Candidates []Candidate   `json:"candidates,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

func (r CompletionMessageResponse) err() error {
	if r.Error != nil {
		return r.Error.toAPIError(http.StatusOK)
	}
	return nil
}

// Stream struct represents a stream of messages from the Google API.
type Stream struct {
	isFinished bool

	reader      *bufio.Reader
	response    *http.Response
	err         error
	unmarshaler Unmarshaler

	httpHeader
}

// Err implements provider.Stream.
func (s *Stream) Err() error { return s.err }

// Next implements provider.Stream.
func (s *Stream) Next() bool {
	return !s.isFinished
}

// Close closes the stream.
func (s *Stream) Close() error {
	if s.response == nil {
		return nil
	}
	return s.response.Body.Close() //nolint:wrapcheck
}

// Current implements provider.Stream.
//
//nolint:gocognit
func (s *Stream) Current() (proto.Chunk, error) {
	var (
		emptyMessagesCount uint
		hasError           bool
	)

	for {
		rawLine, readErr := s.reader.ReadBytes('\n')
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				s.isFinished = true
				return proto.Chunk{}, provider.ErrNoContent // signals end of stream, not a real error
			}
			return proto.Chunk{}, fmt.Errorf("googleStreamReader.processLines: %w", readErr)
		}

		noSpaceLine := bytes.TrimSpace(rawLine)

		if bytes.HasPrefix(noSpaceLine, errorPrefix) {
			hasError = true
			// NOTE: Continue to the next event to get the error data.
			continue
		}

		if !bytes.HasPrefix(noSpaceLine, googleHeaderData) || hasError {
			if hasError {
				noSpaceLine = bytes.TrimPrefix(noSpaceLine, googleHeaderData)
				s.err = fmt.Errorf("googleStreamReader.processLines: %s", noSpaceLine)
				s.isFinished = true
				return proto.Chunk{}, s.err
			}
			emptyMessagesCount++
			if emptyMessagesCount > emptyMessagesLimit {
				s.err = ErrTooManyEmptyStreamMessages
				s.isFinished = true
				return proto.Chunk{}, s.err
			}
			continue
		}

		noPrefixLine := bytes.TrimPrefix(noSpaceLine, googleHeaderData)

		var chunk CompletionMessageResponse
		unmarshalErr := s.unmarshaler.Unmarshal(noPrefixLine, &chunk)
		if unmarshalErr != nil {
			return proto.Chunk{}, fmt.Errorf("googleStreamReader.processLines: %w", unmarshalErr)
		}
		if err := chunk.err(); err != nil {
			s.err = err
			s.isFinished = true
			return proto.Chunk{}, err
		}
		if len(chunk.Candidates) == 0 {
			return proto.Chunk{}, provider.ErrNoContent
		}
		candidate := chunk.Candidates[0]
		// grounding metadata usually rides on the last, text-less chunk
		out := proto.Chunk{Sources: toProtoSources(candidate.GroundingMetadata)}
		if len(candidate.Content.Parts) > 0 {
			out.Content = candidate.Content.Parts[0].Text
		}
		if out.Content == "" && len(out.Sources) == 0 {
			return proto.Chunk{}, provider.ErrNoContent
		}
		return out, nil
	}
}

func googleSendRequestStream(client *Client, req *http.Request) (*Stream, error) {
	req.Header.Set("content-type", "application/json")

	resp, err := client.config.HTTPClient.Do(req) //nolint:bodyclose // body is closed in stream.Close()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if isFailureStatusCode(resp) {
		defer resp.Body.Close() //nolint:errcheck
		return nil, client.handleErrorResp(resp)
	}
	return &Stream{
		reader:      bufio.NewReader(resp.Body),
		response:    resp,
		unmarshaler: client.unmarshaler,
		httpHeader:  httpHeader(resp.Header),
	}, nil
}
