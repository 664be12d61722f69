package keys

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testStore(t *testing.T, env map[string]string) *Store {
	t.Helper()
	keyring.MockInit()
	s := New()
	s.getenv = func(name string) string { return env[name] }
	return s
}

func TestStore(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		s := testStore(t, nil)
		_, _, err := s.Get()
		require.ErrorIs(t, err, ErrNoKey)
	})

	t.Run("set get delete", func(t *testing.T) {
		s := testStore(t, nil)
		require.NoError(t, s.Set("  AIzaSyExample1234  "))

		key, src, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, "AIzaSyExample1234", key)
		require.Equal(t, SourceKeyring, src)

		require.NoError(t, s.Delete())
		_, _, err = s.Get()
		require.ErrorIs(t, err, ErrNoKey)
		require.NoError(t, s.Delete())
	})

	t.Run("empty key", func(t *testing.T) {
		s := testStore(t, nil)
		require.ErrorIs(t, s.Set("   "), ErrEmptyKey)
	})

	t.Run("env wins", func(t *testing.T) {
		s := testStore(t, map[string]string{
			"GEMINI_API_KEY": "from-gemini",
			"NEXUS_API_KEY":  "from-nexus",
		})
		require.NoError(t, s.Set("from-keyring"))
		key, src, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, "from-nexus", key)
		require.Equal(t, SourceEnv, src)
	})

	t.Run("second env var", func(t *testing.T) {
		s := testStore(t, map[string]string{"GEMINI_API_KEY": "from-gemini"})
		key, _, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, "from-gemini", key)
	})
}

func TestMask(t *testing.T) {
	require.Equal(t, "AIza…wxyz", Mask("AIzaSyABCDEFGHwxyz"))
	require.Equal(t, "••••", Mask("abcd"))
	require.Equal(t, "", Mask(""))
}
