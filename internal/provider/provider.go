// Package provider defines the contract every generative backend implements.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/antoto2021/nexus/internal/proto"
)

// ErrNoContent happens when the client is returning no content.
var ErrNoContent = errors.New("no content")

// Client is a generative-language client.
type Client interface {
	// ListModels returns every model the credential can see.
	ListModels(ctx context.Context) ([]proto.ModelInfo, error)

	// Probe issues a minimal generation request against the model.
	Probe(ctx context.Context, model string) error

	// Generate runs a complete, non-streamed generation.
	Generate(ctx context.Context, request proto.Request) (proto.Response, error)

	// Stream starts a streamed generation.
	Stream(ctx context.Context, request proto.Request) Stream
}

// Stream is an ongoing stream.
type Stream interface {
	// returns false when no more chunks are available
	Next() bool

	// the current chunk
	Current() (proto.Chunk, error)

	// closes the underlying stream
	Close() error

	// streaming error
	Err() error
}

// APIError is the error object returned by the remote API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// IsAuth reports whether err is an API error caused by an invalid or
// unauthorized credential.
func IsAuth(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		return ae.Status == "INVALID_ARGUMENT" && containsKeyHint(ae.Message)
	}
	return false
}

func containsKeyHint(msg string) bool {
	return strings.Contains(msg, "API key not valid") ||
		strings.Contains(msg, "API_KEY_INVALID")
}
