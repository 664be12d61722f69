package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadPrompt(t *testing.T) {
	for name, tc := range map[string]struct {
		args  []string
		stdin string
		want  string
	}{
		"args only":      {args: []string{"missions", "Go"}, want: "missions Go"},
		"stdin only":     {stdin: "  cv content\n", want: "cv content"},
		"args and stdin": {args: []string{"résume"}, stdin: "mon cv", want: "résume\n\nmon cv"},
		"nothing":        {want: ""},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := readPrompt(tc.args, strings.NewReader(tc.stdin))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	t.Run("no stdin", func(t *testing.T) {
		got, err := readPrompt([]string{"hello"}, nil)
		require.NoError(t, err)
		require.Equal(t, "hello", got)
	})
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"scan", "models", "key", "history", "update", "serve", "man"} {
		require.True(t, names[name], name)
	}

	cmd, _, err := rootCmd.Find([]string{"history", "delete"})
	require.NoError(t, err)
	require.Equal(t, historyDeleteCmd, cmd)
	require.NotNil(t, cmd.Flags().Lookup("older-than"))

	cmd, _, err = rootCmd.Find([]string{"key", "set"})
	require.NoError(t, err)
	require.Equal(t, keySetCmd, cmd)
}
