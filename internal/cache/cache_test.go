package cache

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/stretchr/testify/require"
)

func TestConversations(t *testing.T) {
	t.Run("read non-existent", func(t *testing.T) {
		cache, err := NewConversations(t.TempDir())
		require.NoError(t, err)
		err = cache.Read("super-fake", &proto.Conversation{})
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("write", func(t *testing.T) {
		cache, err := NewConversations(t.TempDir())
		require.NoError(t, err)
		messages := proto.Conversation{
			{
				Role:    proto.RoleUser,
				Content: "missions Go freelance à Lyon",
				Files:   []string{"cv.pdf"},
			},
			{
				Role:    proto.RoleAssistant,
				Content: `{"type":"text","content":"ok"}`,
			},
		}
		require.NoError(t, cache.Write("fake", &messages))

		result := proto.Conversation{}
		require.NoError(t, cache.Read("fake", &result))
		require.Equal(t, messages, result)
	})

	t.Run("delete", func(t *testing.T) {
		cache, err := NewConversations(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, cache.Write("fake", &proto.Conversation{}))
		require.NoError(t, cache.Delete("fake"))
		require.ErrorIs(t, cache.Read("fake", nil), os.ErrNotExist)
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, id := range []string{"", "../escape", ".."} {
			cache, err := NewConversations(t.TempDir())
			require.NoError(t, err)
			require.ErrorIs(t, cache.Write(id, nil), errInvalidID)
			require.ErrorIs(t, cache.Delete(id), errInvalidID)
			require.ErrorIs(t, cache.Read(id, nil), errInvalidID)
		}
	})
}

func TestExpiringCache(t *testing.T) {
	readString := func(cache *ExpiringCache[string], id string) (string, error) {
		var result string
		err := cache.Read(id, func(r io.Reader) error {
			b, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			result = string(b)
			return nil
		})
		return result, err
	}
	writeString := func(cache *ExpiringCache[string], id, data string, expiresAt int64) error {
		return cache.Write(id, expiresAt, func(w io.Writer) error {
			_, err := io.WriteString(w, data)
			return err
		})
	}

	t.Run("write and read", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)
		require.NoError(t, writeString(cache, "test", "test data", time.Now().Add(time.Hour).Unix()))

		result, err := readString(cache, "test")
		require.NoError(t, err)
		require.Equal(t, "test data", result)
	})

	t.Run("missing", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)
		_, err = readString(cache, "nope")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("expired", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)
		require.NoError(t, writeString(cache, "test", "test data", time.Now().Add(-time.Hour).Unix()))

		_, err = readString(cache, "test")
		require.ErrorIs(t, err, os.ErrNotExist)

		matches, err := cache.matches("test")
		require.NoError(t, err)
		require.Empty(t, matches)
	})

	t.Run("overwrite", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)
		require.NoError(t, writeString(cache, "test", "test data 1", time.Now().Add(time.Hour).Unix()))
		require.NoError(t, writeString(cache, "test", "test data 2", time.Now().Add(2*time.Hour).Unix()))

		result, err := readString(cache, "test")
		require.NoError(t, err)
		require.Equal(t, "test data 2", result)
	})

	t.Run("get and set", func(t *testing.T) {
		type status struct {
			Remote string
		}
		cache, err := NewExpiring[status](t.TempDir())
		require.NoError(t, err)
		require.NoError(t, cache.Set("github", status{Remote: "abc1234"}, time.Minute))

		got, err := cache.Get("github")
		require.NoError(t, err)
		require.Equal(t, "abc1234", got.Remote)

		cache.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err = cache.Get("github")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("delete", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)
		require.NoError(t, cache.Set("x", "v", time.Hour))
		require.NoError(t, cache.Delete("x"))
		_, err = cache.Get("x")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
