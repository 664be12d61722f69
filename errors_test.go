package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/antoto2021/nexus/internal/agent"
	"github.com/antoto2021/nexus/internal/keys"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/antoto2021/nexus/internal/router"
	"github.com/stretchr/testify/require"
)

func TestExplain(t *testing.T) {
	for name, tc := range map[string]struct {
		err    error
		reason string
	}{
		"no key":         {fmt.Errorf("get: %w", keys.ErrNoKey), "No API key configured"},
		"not configured": {agent.ErrNotConfigured, "No API key configured"},
		"auth":           {&provider.APIError{StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid. Please pass a valid API key."}, "rejected your key"},
		"no model":       {router.ErrNoWorkingModel, "None of the models answered"},
		"empty chain":    {router.ErrNoModels, "No model to try"},
		"exhausted": {&router.ExhaustedError{Attempts: []router.Attempt{
			{Model: "a", Err: errors.New("boom")},
			{Model: "b", Err: errors.New("boom")},
		}}, "All 2 models failed"},
		"empty prompt": {agent.ErrEmptyPrompt, "The prompt is empty."},
	} {
		t.Run(name, func(t *testing.T) {
			err := explain(tc.err)
			var nerr nexusError
			require.ErrorAs(t, err, &nerr)
			require.Contains(t, nerr.Reason(), tc.reason)
			require.ErrorIs(t, err, tc.err)
		})
	}

	t.Run("passthrough", func(t *testing.T) {
		err := errors.New("other")
		require.Equal(t, err, explain(err))
		require.NoError(t, explain(nil))

		wrapped := nexusError{err, "already explained"}
		require.Equal(t, error(wrapped), explain(wrapped))
	})
}

func TestOrList(t *testing.T) {
	require.Equal(t, "", orList())
	require.Equal(t, "a", orList("a"))
	require.Equal(t, "a or b", orList("a", "b"))
	require.Equal(t, "a, b, or c", orList("a", "b", "c"))
}
