// Package proto shared protocol.
package proto

import (
	"fmt"
	"slices"
	"strings"
)

// Roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MethodGenerateContent is the generation method a model must support to be
// usable for chat.
const MethodGenerateContent = "generateContent"

// Chunk is a streaming chunk of text. Sources are set on the chunk that
// carries grounding metadata.
type Chunk struct {
	Content string
	Sources []Source
}

// Message is a message in the conversation.
type Message struct {
	Role    string
	Content string
	Files   []string
}

// Source is a web page the model used to ground its answer.
type Source struct {
	Title string
	URI   string
}

// Request is a chat request.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Grounding   bool
	Temperature *float64
	TopP        *float64
	TopK        *int64
	Stop        []string
	MaxTokens   *int64
}

// WithModel returns a copy of the request targeting the given model.
func (r Request) WithModel(model string) Request {
	r.Model = model
	return r
}

// Response is a complete, non-streamed answer.
type Response struct {
	Model        string
	Content      string
	FinishReason string
	Sources      []Source
}

// ModelInfo describes a model as reported by the remote API.
type ModelInfo struct {
	Name                       string
	DisplayName                string
	SupportedGenerationMethods []string
}

// ID returns the model name without the "models/" resource prefix.
func (m ModelInfo) ID() string {
	return strings.TrimPrefix(m.Name, "models/")
}

// CanGenerate reports whether the model supports content generation.
func (m ModelInfo) CanGenerate() bool {
	return slices.Contains(m.SupportedGenerationMethods, MethodGenerateContent)
}

// Conversation is a conversation.
type Conversation []Message

func (cc Conversation) String() string {
	var sb strings.Builder
	for _, msg := range cc {
		if msg.Content == "" && len(msg.Files) == 0 {
			continue
		}
		switch msg.Role {
		case RoleSystem:
			sb.WriteString("**System**: ")
		case RoleUser:
			sb.WriteString("**User**: ")
		case RoleAssistant:
			sb.WriteString("**Assistant**: ")
		}
		sb.WriteString(msg.Content)
		if len(msg.Files) > 0 {
			if msg.Content != "" {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("> Files: %s", strings.Join(msg.Files, ", ")))
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// LastPrompt returns the content of the last user message.
func LastPrompt(messages []Message) string {
	var result string
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		result = msg.Content
	}
	return result
}

// FirstLine returns the first line of s.
func FirstLine(s string) string {
	first, _, _ := strings.Cut(s, "\n")
	return first
}
