package proto

import (
	"testing"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/require"
)

func TestStringer(t *testing.T) {
	messages := []Message{
		{
			Role:    RoleSystem,
			Content: "you are a freelance assistant",
		},
		{
			Role:    RoleUser,
			Content: "find go jobs in Lyon",
		},
		{
			Role:  RoleUser,
			Files: []string{"cv.pdf", "notes.txt"},
		},
		{
			Role:    RoleAssistant,
			Content: `{"type":"text","content":"hello"}`,
		},
		{
			Role: RoleAssistant,
		},
		{
			Role:    RoleUser,
			Content: "thanks",
			Files:   []string{"cv.pdf"},
		},
	}

	golden.RequireEqual(t, []byte(Conversation(messages).String()))
}

func TestLastPrompt(t *testing.T) {
	t.Run("no prompt", func(t *testing.T) {
		require.Equal(t, "", LastPrompt(nil))
	})

	t.Run("multiple prompts", func(t *testing.T) {
		require.Equal(t, "last", LastPrompt([]Message{
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: "hallo"},
			{Role: RoleUser, Content: "last"},
			{Role: RoleAssistant, Content: "bye"},
		}))
	})
}

func TestModelInfo(t *testing.T) {
	m := ModelInfo{
		Name:                       "models/gemini-1.5-flash",
		SupportedGenerationMethods: []string{"countTokens", MethodGenerateContent},
	}
	require.Equal(t, "gemini-1.5-flash", m.ID())
	require.True(t, m.CanGenerate())

	embed := ModelInfo{
		Name:                       "models/text-embedding-004",
		SupportedGenerationMethods: []string{"embedContent"},
	}
	require.False(t, embed.CanGenerate())
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "single line", FirstLine("single line"))
	require.Equal(t, "line 1", FirstLine("line 1\nline 2\nline 3"))
}
