package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestFromProtoMessages(t *testing.T) {
	contents := fromProtoMessages([]proto.Message{
		{Role: proto.RoleSystem, Content: "sys"},
		{Role: proto.RoleUser, Content: "hi"},
		{Role: proto.RoleAssistant, Content: "hello"},
		{Role: proto.RoleUser},
	})
	require.Len(t, contents, 3)
	require.Equal(t, "user", contents[0].Role)
	require.Equal(t, "user", contents[1].Role)
	require.Equal(t, "model", contents[2].Role)
	require.Equal(t, "hello", contents[2].Parts[0].Text)
}

func TestToProtoResponse(t *testing.T) {
	t.Run("grounded", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content:      genai.NewContentFromText("answer", genai.RoleModel),
				FinishReason: genai.FinishReasonStop,
				GroundingMetadata: &genai.GroundingMetadata{
					GroundingChunks: []*genai.GroundingChunk{
						{Web: &genai.GroundingChunkWeb{Title: "Example", URI: "https://example.com"}},
						{},
					},
				},
			}},
		}
		out, err := toProtoResponse("gemini-1.5-flash", resp)
		require.NoError(t, err)
		require.Equal(t, "answer", out.Content)
		require.Equal(t, "STOP", out.FinishReason)
		require.Equal(t, []proto.Source{{Title: "Example", URI: "https://example.com"}}, out.Sources)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := toProtoResponse("m", &genai.GenerateContentResponse{})
		require.ErrorIs(t, err, provider.ErrNoContent)
	})
}

func TestToAPIError(t *testing.T) {
	err := toAPIError(fmt.Errorf("wrapped: %w", genai.APIError{
		Code:    403,
		Status:  "PERMISSION_DENIED",
		Message: "denied",
	}))
	var apiErr *provider.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 403, apiErr.StatusCode)
	require.True(t, provider.IsAuth(err))

	plain := errors.New("boom")
	require.Equal(t, plain, toAPIError(plain))
}

func TestStream(t *testing.T) {
	var seq iter.Seq2[*genai.GenerateContentResponse, error] = func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, s := range []string{"Hel", "lo"} {
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(s, genai.RoleModel)}},
			}
			if !yield(resp, nil) {
				return
			}
		}
		yield(nil, genai.APIError{Code: 500, Message: "late failure"})
	}

	stream := newStream(seq)
	var got string
	for stream.Next() {
		chunk, err := stream.Current()
		require.NoError(t, err)
		got += chunk.Content
	}
	require.Equal(t, "Hello", got)
	var apiErr *provider.APIError
	require.ErrorAs(t, stream.Err(), &apiErr)
	require.Equal(t, 500, apiErr.StatusCode)
	require.NoError(t, stream.Close())
}

func TestNew(t *testing.T) {
	client, err := New(context.Background(), Config{APIKey: "secret", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	require.NotNil(t, client.Models)
}
