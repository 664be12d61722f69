package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testDB(tb testing.TB) *DB {
	db, err := Open(":memory:")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		require.NoError(tb, db.Close())
	})
	return db
}

func TestNewID(t *testing.T) {
	id := NewID()
	require.Len(t, id, 40)
	require.True(t, IDPattern.MatchString(id))
	require.NotEqual(t, id, NewID())
}

func TestConversations(t *testing.T) {
	const testid = "df31ae23ab8b75b5643c2f846c570997edc71333"

	t.Run("list-empty", func(t *testing.T) {
		db := testDB(t)
		list, err := db.List()
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("save", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(testid, "message 1", "gemini-1.5-flash"))

		convo, err := db.Find("df31")
		require.NoError(t, err)
		require.Equal(t, testid, convo.ID)
		require.Equal(t, "message 1", convo.Title)
		require.Equal(t, "gemini-1.5-flash", convo.Model)

		list, err := db.List()
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("save no id", func(t *testing.T) {
		db := testDB(t)
		require.Error(t, db.Save("", "message 1", ""))
	})

	t.Run("save no message", func(t *testing.T) {
		db := testDB(t)
		require.Error(t, db.Save(NewID(), "", ""))
	})

	t.Run("update", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(testid, "message 1", "a"))
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, db.Save(testid, "message 2", "b"))

		convo, err := db.Find("df31")
		require.NoError(t, err)
		require.Equal(t, testid, convo.ID)
		require.Equal(t, "message 2", convo.Title)
		require.Equal(t, "b", convo.Model)

		list, err := db.List()
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("find head empty", func(t *testing.T) {
		db := testDB(t)
		_, err := db.FindHEAD()
		require.ErrorIs(t, err, ErrNoMatches)
	})

	t.Run("find head multiple", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(testid, "message 2", ""))
		time.Sleep(time.Millisecond * 100)
		nextConvo := NewID()
		require.NoError(t, db.Save(nextConvo, "another message", ""))

		head, err := db.FindHEAD()
		require.NoError(t, err)
		require.Equal(t, nextConvo, head.ID)
		require.Equal(t, "another message", head.Title)

		list, err := db.List()
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, nextConvo, list[0].ID)
	})

	t.Run("find by title", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(NewID(), "message 1", ""))
		require.NoError(t, db.Save(testid, "message 2", ""))

		convo, err := db.Find("message 2")
		require.NoError(t, err)
		require.Equal(t, testid, convo.ID)
	})

	t.Run("find short title", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testid, "hi", ""))
		convo, err := db.Find("hi")
		require.NoError(t, err)
		require.Equal(t, testid, convo.ID)
	})

	t.Run("find match nothing", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testid, "message 1", ""))
		_, err := db.Find("message")
		require.ErrorIs(t, err, ErrNoMatches)
	})

	t.Run("find match many", func(t *testing.T) {
		db := testDB(t)
		const testid2 = "df31ae23ab9b75b5641c2f846c571000edc71315"
		require.NoError(t, db.Save(testid, "message 1", ""))
		require.NoError(t, db.Save(testid2, "message 2", ""))
		_, err := db.Find("df31ae")
		require.ErrorIs(t, err, ErrManyMatches)
	})

	t.Run("older than", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testid, "message 1", ""))
		old, err := db.ListOlderThan(time.Hour)
		require.NoError(t, err)
		require.Empty(t, old)
		old, err = db.ListOlderThan(-time.Hour)
		require.NoError(t, err)
		require.Len(t, old, 1)
	})

	t.Run("delete", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(testid, "message 1", ""))
		require.NoError(t, db.Delete(NewID()))

		list, err := db.List()
		require.NoError(t, err)
		require.NotEmpty(t, list)

		for _, item := range list {
			require.NoError(t, db.Delete(item.ID))
		}

		list, err = db.List()
		require.NoError(t, err)
		require.Empty(t, list)
	})
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	_, ok, err := db.GetSetting(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.SetSetting(ctx, "k", "v1"))
	require.NoError(t, db.SetSetting(ctx, "k", "v2"))
	value, ok, err := db.GetSetting(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", value)

	require.NoError(t, db.DeleteSetting(ctx, "k"))
	_, ok, err = db.GetSetting(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestState(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		db := testDB(t)
		state, err := db.State(ctx)
		require.NoError(t, err)
		require.Empty(t, state.ActiveModel)
		require.Empty(t, state.ValidatedModels)
		require.Equal(t, DefaultLocalHash, state.LocalHash)
	})

	t.Run("round trip", func(t *testing.T) {
		db := testDB(t)
		want := State{
			ActiveModel:     "gemini-1.5-flash",
			ValidatedModels: []string{"gemini-1.5-flash", "gemini-1.5-pro"},
			LocalHash:       "abc1234",
		}
		require.NoError(t, db.SaveState(ctx, want))
		got, err := db.State(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("clear", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.SaveState(ctx, State{ActiveModel: "a", ValidatedModels: []string{"a"}, LocalHash: "h"}))
		require.NoError(t, db.SaveState(ctx, State{LocalHash: "h"}))
		got, err := db.State(ctx)
		require.NoError(t, err)
		require.Empty(t, got.ActiveModel)
		require.Empty(t, got.ValidatedModels)
		require.Equal(t, "h", got.LocalHash)
	})
}
