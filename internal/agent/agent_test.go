package agent

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/antoto2021/nexus/internal/response"
	"github.com/antoto2021/nexus/internal/router"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	reply    string
	sources  []proto.Source
	err      error
	requests []proto.Request
}

func (f *fakeClient) ListModels(context.Context) ([]proto.ModelInfo, error) { return nil, nil }
func (f *fakeClient) Probe(context.Context, string) error                  { return nil }

func (f *fakeClient) Generate(_ context.Context, req proto.Request) (proto.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return proto.Response{}, f.err
	}
	return proto.Response{Content: f.reply, Sources: f.sources}, nil
}

func (f *fakeClient) Stream(ctx context.Context, req proto.Request) provider.Stream {
	return provider.NewNonStreaming(ctx, req, f.Generate)
}

func newAgent(t *testing.T, client *fakeClient, config Config) *Agent {
	t.Helper()
	r := router.New(client, []string{"gemini-1.5-flash"}, log.NewWithOptions(io.Discard, log.Options{}))
	a, err := New(r, r.Chain("", nil), config)
	require.NoError(t, err)
	return a
}

func TestSend(t *testing.T) {
	t.Run("structured reply", func(t *testing.T) {
		client := &fakeClient{reply: "```json\n" + `{"type":"job_list","items":[{"title":"Go dev","company":"acme"}]}` + "\n```"}
		a := newAgent(t, client, Config{Grounding: true})

		result, err := a.Send(context.Background(), "  missions Go  ")
		require.NoError(t, err)
		require.Equal(t, "gemini-1.5-flash", result.Model)
		require.Equal(t, response.TypeJobList, result.Reply.Type)
		require.Len(t, result.Reply.Items, 1)

		require.Len(t, client.requests, 1)
		req := client.requests[0]
		require.True(t, req.Grounding)
		require.Contains(t, req.System, "JSON STRICT")
		require.Equal(t, []proto.Message{{Role: proto.RoleUser, Content: "missions Go"}}, req.Messages)

		history := a.History()
		require.Len(t, history, 2)
		require.Equal(t, proto.RoleAssistant, history[1].Role)
	})

	t.Run("history is sent", func(t *testing.T) {
		client := &fakeClient{reply: `{"type":"text","content":"ok"}`}
		a := newAgent(t, client, Config{})
		_, err := a.Send(context.Background(), "one")
		require.NoError(t, err)
		_, err = a.Send(context.Background(), "two")
		require.NoError(t, err)
		require.Len(t, client.requests[1].Messages, 3)
		require.Equal(t, "two", proto.LastPrompt(client.requests[1].Messages))
	})

	t.Run("empty prompt", func(t *testing.T) {
		a := newAgent(t, &fakeClient{}, Config{})
		_, err := a.Send(context.Background(), "   ")
		require.ErrorIs(t, err, ErrEmptyPrompt)
		require.Empty(t, a.History())
	})

	t.Run("not configured", func(t *testing.T) {
		a, err := New(nil, nil, Config{})
		require.NoError(t, err)
		_, err = a.Send(context.Background(), "hi")
		require.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("failure keeps prompt", func(t *testing.T) {
		client := &fakeClient{err: errors.New("boom")}
		a := newAgent(t, client, Config{})
		_, err := a.Send(context.Background(), "hi")
		var exhausted *router.ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		require.Equal(t, proto.Conversation{{Role: proto.RoleUser, Content: "hi"}}, a.History())
	})
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	blob := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(notes, []byte("Go, Kubernetes, 8 ans"), 0o600))
	require.NoError(t, os.WriteFile(blob, []byte{0x25, 0x50, 0x00, 0xff}, 0o600))

	files, err := ReadFiles([]string{blob, notes})
	require.NoError(t, err)
	require.Equal(t, []File{{Name: "cv.pdf"}, {Name: "notes.txt", Content: "Go, Kubernetes, 8 ans"}}, files)

	_, err = ReadFiles([]string{filepath.Join(dir, "missing")})
	require.ErrorIs(t, err, os.ErrNotExist)

	t.Run("names and contents", func(t *testing.T) {
		client := &fakeClient{reply: "plain"}
		a := newAgent(t, client, Config{MaxInputChars: 1000})
		a.AddFiles(files...)
		require.Equal(t, []string{"cv.pdf", "notes.txt"}, a.FileNames())
		require.Equal(t, proto.Message{Role: proto.RoleUser, Files: []string{"cv.pdf", "notes.txt"}}, a.History()[0])

		result, err := a.Send(context.Background(), "analyse")
		require.NoError(t, err)
		require.False(t, result.Reply.Structured)
		require.Equal(t, "plain", result.Reply.Content)

		system := client.requests[0].System
		require.Contains(t, system, "Contexte Fichiers: cv.pdf, notes.txt")
		require.Contains(t, system, "--- notes.txt ---\nGo, Kubernetes, 8 ans")
	})

	t.Run("names only", func(t *testing.T) {
		a := newAgent(t, &fakeClient{}, Config{})
		a.AddFiles(files...)
		system, err := a.SystemPrompt()
		require.NoError(t, err)
		require.Contains(t, system, "Contexte Fichiers: cv.pdf, notes.txt")
		require.NotContains(t, system, "Kubernetes")
	})

	t.Run("budget", func(t *testing.T) {
		a := newAgent(t, &fakeClient{}, Config{MaxInputChars: 5})
		a.AddFiles(files...)
		system, err := a.SystemPrompt()
		require.NoError(t, err)
		require.Contains(t, system, "--- notes.txt ---\nGo, K")
		require.NotContains(t, system, "Go, Ku")
	})

	t.Run("load", func(t *testing.T) {
		a := newAgent(t, &fakeClient{}, Config{})
		a.Load(proto.Conversation{
			{Role: proto.RoleUser, Files: []string{"cv.pdf"}},
			{Role: proto.RoleUser, Content: "hello"},
		})
		require.Equal(t, []string{"cv.pdf"}, a.FileNames())
		require.Len(t, a.History(), 2)
	})
}

func TestCustomSystemPrompt(t *testing.T) {
	_, err := New(nil, nil, Config{SystemPrompt: "{{ .Broken"})
	require.Error(t, err)

	a, err := New(nil, nil, Config{SystemPrompt: "files={{ join .Files \"|\" }}"})
	require.NoError(t, err)
	a.AddFiles(File{Name: "a"}, File{Name: "b"})
	system, err := a.SystemPrompt()
	require.NoError(t, err)
	require.Equal(t, "files=a|b", system)
}

func TestStream(t *testing.T) {
	client := &fakeClient{reply: `{"type":"text","content":"bonjour"}`}
	a := newAgent(t, client, Config{})

	var chunks []string
	result, err := a.Stream(context.Background(), "salut", func(c proto.Chunk) {
		chunks = append(chunks, c.Content)
	})
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-flash", result.Model)
	require.Equal(t, []string{`{"type":"text","content":"bonjour"}`}, chunks)
	require.True(t, result.Reply.Structured)
	require.Equal(t, "bonjour", result.Reply.Content)
	require.Len(t, a.History(), 2)

	t.Run("grounding sources", func(t *testing.T) {
		sources := []proto.Source{{Title: "Malt", URI: "https://www.malt.fr"}}
		client := &fakeClient{reply: "voici", sources: sources}
		a := newAgent(t, client, Config{Grounding: true})
		result, err := a.Stream(context.Background(), "missions", nil)
		require.NoError(t, err)
		require.Equal(t, sources, result.Sources)
	})

	t.Run("failure keeps the prompt", func(t *testing.T) {
		client := &fakeClient{err: errors.New("boom")}
		a := newAgent(t, client, Config{})
		_, err := a.Stream(context.Background(), "salut", nil)
		require.Error(t, err)
		require.Len(t, a.History(), 1)
	})
}
