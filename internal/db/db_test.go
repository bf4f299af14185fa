package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/moodmatch/internal/config"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "songs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name   string
		song   string
		artist string
		want   string
	}{
		{"lowercases", "Mockingbird", "Eminem", "mockingbird_eminem"},
		{"collapses whitespace", "  Hey   Jude ", "The\tBeatles", "hey jude_the beatles"},
		{"folds accents", "Café", "Beyoncé", "cafe_beyonce"},
		{"compatibility forms", "ｆｕｌｌ width", "Ⅳ", "full width_iv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyOf(tt.song, tt.artist).String())
		})
	}
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	song := &Song{Song: "Mockingbird", Artist: "Eminem", Lyrics: "hush little baby", Mood: "sad"}
	require.NoError(t, store.Upsert(ctx, song))
	assert.NotEqual(t, uuid.Nil, song.ID)
	assert.False(t, song.CreatedAt.IsZero())

	got, err := store.Get(ctx, KeyOf("MOCKINGBIRD", " eminem "))
	require.NoError(t, err)
	assert.Equal(t, song.ID, got.ID)
	assert.Equal(t, "Mockingbird", got.Song)
	assert.Equal(t, "Eminem", got.Artist)
	assert.Equal(t, "hush little baby", got.Lyrics)
	assert.Equal(t, "sad", got.Mood)
	assert.True(t, song.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteStore_UpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := &Song{Song: "Stan", Artist: "Eminem", Lyrics: "old", Mood: "sad"}
	require.NoError(t, store.Upsert(ctx, first))

	second := &Song{Song: "stan", Artist: "EMINEM", Lyrics: "new", Mood: "angry"}
	require.NoError(t, store.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	got, err := store.Get(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, "new", got.Lyrics)
	assert.Equal(t, "angry", got.Mood)

	counts, err := store.CountByMood(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"angry": 1}, counts)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), KeyOf("nothing", "nobody"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_RejectsEmptyMood(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Upsert(ctx, &Song{Song: "a", Artist: "b", Lyrics: "c"})
	assert.ErrorIs(t, err, ErrEmptyMood)

	_, err = store.Get(ctx, KeyOf("a", "b"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListByMoodInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, s := range []Song{
		{Song: "c", Artist: "x", Lyrics: "1", Mood: "happy"},
		{Song: "a", Artist: "x", Lyrics: "2", Mood: "sad"},
		{Song: "b", Artist: "x", Lyrics: "3", Mood: "happy"},
		{Song: "a", Artist: "y", Lyrics: "4", Mood: "happy"},
	} {
		s := s
		require.NoError(t, store.Upsert(ctx, &s))
	}

	happy, err := store.ListByMood(ctx, "happy")
	require.NoError(t, err)
	require.Len(t, happy, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{happy[0].Song, happy[1].Song, happy[2].Song})

	none, err := store.ListByMood(ctx, "calm")
	require.NoError(t, err)
	assert.Empty(t, none)

	counts, err := store.CountByMood(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"happy": 3, "sad": 1}, counts)
}

func TestOpenSQLite_InMemory(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Upsert(ctx, &Song{Song: "a", Artist: "b", Lyrics: "c", Mood: "calm"}))
	got, err := store.Get(ctx, KeyOf("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "calm", got.Mood)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{
		Backend: "sqlite",
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db")},
	})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, config.StoreConfig{Backend: "redis"})
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}
