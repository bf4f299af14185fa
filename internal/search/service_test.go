package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/moodmatch/internal/db"
	"github.com/justestif/moodmatch/internal/lyrics"
	"github.com/justestif/moodmatch/internal/similarity"
	"github.com/justestif/moodmatch/internal/spotify"
)

type fakeSource struct {
	songs map[string]*lyrics.Lyrics
	err   error
	calls int
}

func (f *fakeSource) Search(_ context.Context, song, _ string) (*lyrics.Lyrics, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if l, ok := f.songs[song]; ok {
		return l, nil
	}
	return nil, lyrics.ErrNotFound
}

type fakeClassifier struct {
	mood  string
	err   error
	calls int
	last  string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (string, error) {
	f.calls++
	f.last = text
	return f.mood, f.err
}

type fakeLinker struct {
	urls map[string]string
}

func (f *fakeLinker) TrackURL(_ context.Context, song, _ string) (string, error) {
	if song == "Broken" {
		return "", errors.New("rate limited")
	}
	if url, ok := f.urls[song]; ok {
		return url, nil
	}
	return "", spotify.ErrNoMatch
}

func testRanking() similarity.Options {
	opts := similarity.DefaultOptions()
	opts.MinDF = 1
	opts.Components = 10
	return opts
}

func newTestStore(t *testing.T) db.SongStore {
	t.Helper()
	store, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store db.SongStore, songs ...db.Song) {
	t.Helper()
	for i := range songs {
		require.NoError(t, store.Upsert(context.Background(), &songs[i]))
	}
}

func TestSearch_ClassifiesAndStoresNewSong(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	source := &fakeSource{songs: map[string]*lyrics.Lyrics{
		"mockingbird": {
			Title:  "Mockingbird",
			Artist: "Eminem",
			Text:   "245 ContributorsMockingbird Lyrics\n[Intro]\nYeah, I know sometimes\nThings may not always make sense to you right now\nEmbed",
		},
	}}
	classifier := &fakeClassifier{mood: "sad"}
	svc := NewService(store, source, classifier, WithRanking(testRanking()))

	result, err := svc.Search(ctx, " mockingbird ", "eminem")
	require.NoError(t, err)

	assert.Equal(t, "Mockingbird", result.Song)
	assert.Equal(t, "Eminem", result.Artist)
	assert.Equal(t, "sad", result.Mood)
	assert.Equal(t, SourceProvider, result.Source)
	assert.Empty(t, result.Similar)
	assert.Equal(t, "yeah, i know sometimes\nthings may not always make sense to you right now", classifier.last)

	stored, err := store.Get(ctx, db.KeyOf("Mockingbird", "Eminem"))
	require.NoError(t, err)
	assert.Equal(t, "sad", stored.Mood)
	assert.Equal(t, classifier.last, stored.Lyrics)

	// the second request is answered from the store
	again, err := svc.Search(ctx, "MOCKINGBIRD", "Eminem")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, again.Source)
	assert.Equal(t, "sad", again.Mood)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, classifier.calls)
}

func TestSearch_CanonicalNameHit(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, db.Song{Song: "Lose Yourself", Artist: "Eminem", Lyrics: "one shot one opportunity", Mood: "energetic"})

	source := &fakeSource{songs: map[string]*lyrics.Lyrics{
		"Lose Yourself (8 Mile)": {Title: "Lose Yourself", Artist: "Eminem", Text: "different text"},
	}}
	classifier := &fakeClassifier{mood: "calm"}
	svc := NewService(store, source, classifier, WithRanking(testRanking()))

	result, err := svc.Search(context.Background(), "Lose Yourself (8 Mile)", "Eminem")
	require.NoError(t, err)

	assert.Equal(t, SourceCache, result.Source)
	assert.Equal(t, "energetic", result.Mood)
	assert.Equal(t, "Lose Yourself", result.Song)
	assert.Equal(t, 1, source.calls)
	assert.Zero(t, classifier.calls)
}

// countingStore records how often the mood pool is listed.
type countingStore struct {
	db.SongStore
	listed int
}

func (c *countingStore) ListByMood(ctx context.Context, mood string) ([]db.Song, error) {
	c.listed++
	return c.SongStore.ListByMood(ctx, mood)
}

func TestResolve_StoresWithoutRanking(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{SongStore: newTestStore(t)}
	seed(t, store,
		db.Song{Song: "Happy", Artist: "Pharrell", Lyrics: "clap along if you feel like happiness is the truth", Mood: "happy"},
		db.Song{Song: "Sunshine", Artist: "Katrina", Lyrics: "walking on sunshine and it feels good", Mood: "happy"},
	)
	source := &fakeSource{songs: map[string]*lyrics.Lyrics{
		"Good": {Title: "Good as Hell", Artist: "Lizzo", Text: "feeling good as hell, walking on sunshine"},
	}}
	svc := NewService(store, source, &fakeClassifier{mood: "happy"},
		WithRanking(testRanking()),
		WithLinker(&fakeLinker{urls: map[string]string{"Sunshine": "https://open.spotify.com/track/s"}}),
	)

	result, err := svc.Resolve(ctx, "Good", "Lizzo")
	require.NoError(t, err)

	assert.Equal(t, "Good as Hell", result.Song)
	assert.Equal(t, "happy", result.Mood)
	assert.Equal(t, SourceProvider, result.Source)
	assert.Nil(t, result.Similar)
	assert.Zero(t, store.listed)

	stored, err := store.Get(ctx, db.KeyOf("Good as Hell", "Lizzo"))
	require.NoError(t, err)
	assert.Equal(t, "happy", stored.Mood)

	cached, err := svc.Resolve(ctx, "good as hell", "LIZZO")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, cached.Source)
	assert.Equal(t, 1, source.calls)
	assert.Zero(t, store.listed)

	// Search over the same song does rank
	ranked, err := svc.Search(ctx, "Good as Hell", "Lizzo")
	require.NoError(t, err)
	assert.Equal(t, 1, store.listed)
	assert.NotEmpty(t, ranked.Similar)
}

func TestSearch_RanksSameMoodSongs(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		db.Song{Song: "Sunny", Artist: "A", Lyrics: "sunshine dance happy today", Mood: "happy"},
		db.Song{Song: "Broken", Artist: "B", Lyrics: "rain cloud grey cold", Mood: "happy"},
		db.Song{Song: "Smile", Artist: "C", Lyrics: "sunshine happy smile", Mood: "happy"},
		db.Song{Song: "Elsewhere", Artist: "D", Lyrics: "sunshine dance happy today", Mood: "sad"},
	)
	source := &fakeSource{songs: map[string]*lyrics.Lyrics{
		"Query": {Title: "Query", Artist: "Q", Text: "happy sunshine dance party"},
	}}
	linker := &fakeLinker{urls: map[string]string{"Sunny": "https://open.spotify.com/track/sunny"}}
	svc := NewService(store, source, &fakeClassifier{mood: "happy"},
		WithRanking(testRanking()),
		WithLinker(linker),
	)

	result, err := svc.Search(context.Background(), "Query", "Q")
	require.NoError(t, err)
	require.Len(t, result.Similar, 3)

	var names []string
	for _, m := range result.Similar {
		names = append(names, m.Song)
	}
	assert.Equal(t, []string{"Sunny", "Smile", "Broken"}, names)
	assert.Greater(t, result.Similar[0].Similarity, result.Similar[1].Similarity)
	assert.InDelta(t, 0, result.Similar[2].Similarity, 0.01)

	assert.Equal(t, "https://open.spotify.com/track/sunny", result.Similar[0].SpotifyURL)
	assert.Empty(t, result.Similar[1].SpotifyURL)
	assert.Empty(t, result.Similar[2].SpotifyURL)
}

func TestSearch_Errors(t *testing.T) {
	providerErr := &lyrics.ProviderError{Op: "searching song", Err: errors.New("502 bad gateway")}

	tests := []struct {
		name    string
		song    string
		source  *fakeSource
		wantErr error
	}{
		{
			name:    "blank song",
			song:    "  ",
			source:  &fakeSource{},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "not found",
			song:    "Nothing",
			source:  &fakeSource{},
			wantErr: ErrNotFound,
		},
		{
			name:    "provider failure",
			song:    "Anything",
			source:  &fakeSource{err: providerErr},
			wantErr: ErrProviderUnavailable,
		},
		{
			name: "blank lyrics",
			song: "Instrumental",
			source: &fakeSource{songs: map[string]*lyrics.Lyrics{
				"Instrumental": {Title: "Instrumental", Artist: "X", Text: "[Instrumental]\nEmbed"},
			}},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			classifier := &fakeClassifier{mood: "happy"}
			svc := NewService(store, tt.source, classifier)

			_, err := svc.Search(context.Background(), tt.song, "Artist")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, classifier.calls)

			counts, err := store.CountByMood(context.Background())
			require.NoError(t, err)
			assert.Empty(t, counts)
		})
	}

	t.Run("provider error keeps cause", func(t *testing.T) {
		svc := NewService(newTestStore(t), &fakeSource{err: providerErr}, &fakeClassifier{})
		_, err := svc.Search(context.Background(), "Song", "Artist")
		assert.ErrorIs(t, err, lyrics.ErrProvider)
	})
}

func TestSearch_ClassifierError(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{songs: map[string]*lyrics.Lyrics{
		"Song": {Title: "Song", Artist: "Artist", Text: "some words"},
	}}
	svc := NewService(store, source, &fakeClassifier{err: errors.New("no model loaded")})

	_, err := svc.Search(context.Background(), "Song", "Artist")
	require.Error(t, err)

	_, err = store.Get(context.Background(), db.KeyOf("Song", "Artist"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestClassify(t *testing.T) {
	classifier := &fakeClassifier{mood: "happy"}
	svc := NewService(newTestStore(t), &fakeSource{}, classifier)

	mood, err := svc.Classify(context.Background(), "[Chorus]\nWALKING on   Sunshine")
	require.NoError(t, err)
	assert.Equal(t, "happy", mood)
	assert.Equal(t, "walking on sunshine", classifier.last)

	_, err = svc.Classify(context.Background(), "[Intro]\n\n")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, classifier.calls)
}

func TestPreprocess(t *testing.T) {
	svc := NewService(newTestStore(t), &fakeSource{}, &fakeClassifier{})

	got := svc.Preprocess("12 ContributorsSunshine Lyrics\n[Chorus]\nI'm WALKING on sunshine (x2)\nEmbed")
	assert.Equal(t, "i'm walking sunshine", got)
	assert.Empty(t, svc.Preprocess("[Intro]\n\n"))
}

func TestMoods(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		db.Song{Song: "a", Artist: "x", Lyrics: "la", Mood: "happy"},
		db.Song{Song: "b", Artist: "x", Lyrics: "la", Mood: "happy"},
		db.Song{Song: "c", Artist: "x", Lyrics: "la", Mood: "sad"},
	)
	svc := NewService(store, &fakeSource{}, &fakeClassifier{})

	counts, err := svc.Moods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"happy": 2, "sad": 1}, counts)
}

func TestThemes(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		db.Song{Song: "a", Artist: "x", Lyrics: "sunshine beach summer waves", Mood: "happy"},
		db.Song{Song: "b", Artist: "x", Lyrics: "summer beach sunshine sand", Mood: "happy"},
		db.Song{Song: "c", Artist: "x", Lyrics: "party dance night club", Mood: "happy"},
		db.Song{Song: "d", Artist: "x", Lyrics: "dance party club music", Mood: "happy"},
		db.Song{Song: "e", Artist: "x", Lyrics: "tears rain alone", Mood: "sad"},
	)
	svc := NewService(store, &fakeSource{}, &fakeClassifier{}, WithRanking(testRanking()))

	result, err := svc.Themes(context.Background(), "happy", 2)
	require.NoError(t, err)
	assert.Equal(t, "happy", result.Mood)

	total := len(result.Outliers)
	for _, theme := range result.Themes {
		total += len(theme.Songs)
		assert.NotEmpty(t, theme.Name)
	}
	assert.Equal(t, 4, total)

	_, err = svc.Themes(context.Background(), "happy", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
