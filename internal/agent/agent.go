// Package agent holds a conversation with the model: it keeps the history,
// the context files and the system prompt, and sends prompts through the
// router.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/antoto2021/nexus/internal/response"
	"github.com/antoto2021/nexus/internal/router"
)

var (
	// ErrEmptyPrompt is returned when sending a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrNotConfigured is returned when there is no key or no model to use.
	ErrNotConfigured = errors.New("no API key or model configured, run `nexus scan` first")
)

// DefaultSystemPrompt asks for strict JSON replies the response package can
// decode.
const DefaultSystemPrompt = `Rôle: Assistant Freelance Expert.
Format de réponse: JSON STRICT (PAS de markdown autour).

Si tu ne trouves pas de lien réel pour une offre, mets la valeur "SEARCH" dans le champ 'url'.

STRUCTURE JSON ATTENDUE POUR OFFRES:
{
    "type": "job_list",
    "items": [
        {
            "title": "Titre",
            "company": "Entreprise",
            "salary": "Salaire/TJM",
            "duration": "Durée",
            "contract_type": "Freelance/CDI",
            "location": "Lieu",
            "source": "Source",
            "description": "Courte desc",
            "description_long": "Longue desc",
            "missions": ["m1", "m2"],
            "logo_url": "null",
            "url": "SEARCH"
        }
    ]
}

POUR DES IDÉES VISUELLES: { "type": "images", "query": "sujet", "keywords": ["mot1", "mot2"] }

POUR LE RESTE: { "type": "text", "content": "Ta réponse markdown..." }

Contexte Fichiers: {{ join .Files ", " }}
{{- range .Contents }}

--- {{ .Name }} ---
{{ .Content }}
{{- end }}
`

// File is a context file added to the conversation.
type File struct {
	Name    string
	Content string
}

// Config tunes an Agent.
type Config struct {
	// SystemPrompt is a text/template rendered with the context files.
	SystemPrompt string
	Grounding    bool
	// MaxInputChars caps the size of the file contents injected into the
	// system prompt. Zero disables injection.
	MaxInputChars int64
	// Request carries the generation parameters used for every call.
	Request proto.Request
}

// Agent is a single conversation.
type Agent struct {
	router *router.Router
	chain  []string
	config Config
	tmpl   *template.Template

	conversation proto.Conversation
	files        []File
}

// New creates an Agent. r may be nil when no key is configured; Send then
// returns ErrNotConfigured.
func New(r *router.Router, chain []string, config Config) (*Agent, error) {
	if strings.TrimSpace(config.SystemPrompt) == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	tmpl, err := template.New("system").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(config.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("invalid system prompt: %w", err)
	}
	return &Agent{
		router: r,
		chain:  chain,
		config: config,
		tmpl:   tmpl,
	}, nil
}

// Chain returns the models tried, in order.
func (a *Agent) Chain() []string { return a.chain }

// Load replaces the history with a stored conversation. File names recorded
// in it become context files again, without their contents.
func (a *Agent) Load(history proto.Conversation) {
	a.conversation = append(proto.Conversation(nil), history...)
	a.files = nil
	for _, msg := range history {
		if msg.Role != proto.RoleUser || msg.Content != "" {
			continue
		}
		for _, name := range msg.Files {
			a.files = append(a.files, File{Name: name})
		}
	}
}

// History returns the conversation so far.
func (a *Agent) History() proto.Conversation { return a.conversation }

// FileNames returns the names of the context files.
func (a *Agent) FileNames() []string {
	names := make([]string, 0, len(a.files))
	for _, f := range a.files {
		names = append(names, f.Name)
	}
	return names
}

// AddFiles records context files and notes them in the history.
func (a *Agent) AddFiles(files ...File) {
	if len(files) == 0 {
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	a.files = append(a.files, files...)
	a.conversation = append(a.conversation, proto.Message{
		Role:  proto.RoleUser,
		Files: names,
	})
}

// ReadFiles reads paths as context files. Binary files keep their name only.
func ReadFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		bts, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read context file: %w", err)
		}
		f := File{Name: filepath.Base(path)}
		if utf8.Valid(bts) && !bytes.ContainsRune(bts, 0) {
			f.Content = string(bts)
		}
		files = append(files, f)
	}
	return files, nil
}

// SystemPrompt renders the system prompt with the current context files.
func (a *Agent) SystemPrompt() (string, error) {
	var contents []File
	budget := a.config.MaxInputChars
	for _, f := range a.files {
		if budget <= 0 {
			break
		}
		if f.Content == "" {
			continue
		}
		content := f.Content
		if int64(len(content)) > budget {
			content = truncate(content, int(budget))
		}
		budget -= int64(len(content))
		contents = append(contents, File{Name: f.Name, Content: content})
	}

	var sb strings.Builder
	if err := a.tmpl.Execute(&sb, struct {
		Files    []string
		Contents []File
	}{
		Files:    a.FileNames(),
		Contents: contents,
	}); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return sb.String(), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Result is a model answer.
type Result struct {
	Model   string
	Raw     string
	Reply   response.Reply
	Sources []proto.Source
}

// Send sends text and records the exchange in the history. When the call
// fails the prompt is still recorded.
func (a *Agent) Send(ctx context.Context, text string) (Result, error) {
	request, err := a.prepare(text)
	if err != nil {
		return Result{}, err
	}

	resp, err := a.router.Generate(ctx, request, a.chain)
	if err != nil {
		return Result{}, err //nolint:wrapcheck
	}
	return a.record(resp.Model, resp.Content, resp.Sources), nil
}

// Stream is like Send but hands the answer to onChunk as it is generated.
// The model may only change before the first chunk.
func (a *Agent) Stream(ctx context.Context, text string, onChunk func(proto.Chunk)) (Result, error) {
	request, err := a.prepare(text)
	if err != nil {
		return Result{}, err
	}

	stream, err := a.router.Stream(ctx, request, a.chain)
	if err != nil {
		return Result{}, err //nolint:wrapcheck
	}
	defer stream.Close() //nolint:errcheck

	var (
		sb      strings.Builder
		sources []proto.Source
	)
	for stream.Next() {
		chunk, err := stream.Current()
		if errors.Is(err, provider.ErrNoContent) {
			continue
		}
		if err != nil {
			return Result{}, err //nolint:wrapcheck
		}
		sb.WriteString(chunk.Content)
		sources = append(sources, chunk.Sources...)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := stream.Err(); err != nil {
		return Result{}, err //nolint:wrapcheck
	}
	return a.record(stream.Model, sb.String(), sources), nil
}

// prepare validates text, records it and builds the request for the whole
// conversation.
func (a *Agent) prepare(text string) (proto.Request, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return proto.Request{}, ErrEmptyPrompt
	}
	if a.router == nil || len(a.chain) == 0 {
		return proto.Request{}, ErrNotConfigured
	}

	system, err := a.SystemPrompt()
	if err != nil {
		return proto.Request{}, err
	}

	a.conversation = append(a.conversation, proto.Message{
		Role:    proto.RoleUser,
		Content: text,
	})

	request := a.config.Request
	request.System = system
	request.Grounding = a.config.Grounding
	request.Messages = append([]proto.Message(nil), a.conversation...)
	return request, nil
}

func (a *Agent) record(model, content string, sources []proto.Source) Result {
	a.conversation = append(a.conversation, proto.Message{
		Role:    proto.RoleAssistant,
		Content: content,
	})
	return Result{
		Model:   model,
		Raw:     content,
		Reply:   response.Parse(content),
		Sources: sources,
	}
}
