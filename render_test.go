package main

import (
	"io"
	"testing"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/response"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func plainStyles() styles {
	return makeStyles(lipgloss.NewRenderer(io.Discard))
}

func TestRenderReply(t *testing.T) {
	s := plainStyles()

	t.Run("text", func(t *testing.T) {
		out := renderReply(s, response.Parse("Bonjour !"), nil)
		require.Equal(t, "Bonjour !\n", out)
	})

	t.Run("job list", func(t *testing.T) {
		reply := response.Parse(`{"type":"job_list","items":[{"title":"Dev Go","company":"acme","salary":"600€/j","missions":["API","CI"],"url":"SEARCH"}]}`)
		out := renderReply(s, reply, nil)
		require.Contains(t, out, "AC")
		require.Contains(t, out, "Dev Go")
		require.Contains(t, out, "acme")
		require.Contains(t, out, "600€/j")
		require.Contains(t, out, "Freelance")
		require.Contains(t, out, "Non spécifié")
		require.Contains(t, out, "• API")
		require.Contains(t, out, "https://www.google.com/search?q=")
	})

	t.Run("empty job list", func(t *testing.T) {
		out := renderReply(s, response.Reply{Type: response.TypeJobList}, nil)
		require.Contains(t, out, "Aucune offre trouvée.")
	})

	t.Run("images", func(t *testing.T) {
		reply := response.Parse(`{"type":"images","query":"bureau","keywords":["desk","plant"]}`)
		out := renderReply(s, reply, nil)
		require.Contains(t, out, "bureau")
		require.Contains(t, out, response.ImageURL("desk"))
		require.Contains(t, out, response.ImageURL("plant"))
	})

	t.Run("sources", func(t *testing.T) {
		out := renderReply(s, response.Parse("ok"), []proto.Source{
			{Title: "Malt", URI: "https://malt.fr"},
			{URI: "https://example.com"},
		})
		require.Contains(t, out, "Sources:")
		require.Contains(t, out, "1. Malt https://malt.fr")
		require.Contains(t, out, "2. https://example.com https://example.com")
	})
}

func TestRenderStatus(t *testing.T) {
	s := plainStyles()
	require.Equal(t, "Disconnected", renderStatus(s, ""))
	require.Equal(t, "Connected: gemini-1.5-flash", renderStatus(s, "gemini-1.5-flash"))
}
