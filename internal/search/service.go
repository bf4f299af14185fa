// Package search orchestrates a song request: stored lookup, lyrics
// retrieval, mood classification, persistence and similarity ranking.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/justestif/moodmatch/internal/clustering"
	"github.com/justestif/moodmatch/internal/db"
	"github.com/justestif/moodmatch/internal/lyrics"
	"github.com/justestif/moodmatch/internal/similarity"
	"github.com/justestif/moodmatch/internal/spotify"
	"github.com/justestif/moodmatch/internal/textproc"
)

// Sentinel errors.
var (
	// ErrNotFound means the provider has no lyrics for the requested song.
	ErrNotFound = errors.New("lyrics for song not found")

	// ErrProviderUnavailable means the lyrics provider call failed.
	ErrProviderUnavailable = errors.New("lyrics provider unavailable")

	// ErrInvalidInput is returned for blank song names or lyrics.
	ErrInvalidInput = errors.New("invalid input")
)

// Source tells where the song's mood came from.
type Source string

const (
	// SourceCache means the song was already stored and was not classified again.
	SourceCache Source = "cache"
	// SourceProvider means the lyrics were fetched and classified for this request.
	SourceProvider Source = "provider"
)

// Result is the outcome of a successful search.
type Result struct {
	Song    string
	Artist  string
	Mood    string
	Similar []similarity.Match
	Source  Source
}

// ThemeResult groups the songs of a mood into themes.
type ThemeResult struct {
	Mood     string
	Themes   []clustering.Theme
	Outliers []clustering.Song
}

// LyricsSource finds lyrics with the provider's canonical names.
type LyricsSource interface {
	Search(ctx context.Context, song, artist string) (*lyrics.Lyrics, error)
}

// MoodClassifier predicts the mood of lyrics.
type MoodClassifier interface {
	Classify(ctx context.Context, lyrics string) (string, error)
}

// Linker finds a streaming link for a song.
type Linker interface {
	TrackURL(ctx context.Context, song, artist string) (string, error)
}

// Service answers search, classify, mood and theme requests.
type Service struct {
	store      db.SongStore
	source     LyricsSource
	classifier MoodClassifier
	linker     Linker
	ranking    similarity.Options
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLinker enriches ranked songs with links from l.
func WithLinker(l Linker) Option {
	return func(s *Service) {
		s.linker = l
	}
}

// WithRanking overrides the similarity ranking parameters.
func WithRanking(opts similarity.Options) Option {
	return func(s *Service) {
		s.ranking = opts
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new search service.
func NewService(store db.SongStore, source LyricsSource, classifier MoodClassifier, opts ...Option) *Service {
	s := &Service{
		store:      store,
		source:     source,
		classifier: classifier,
		ranking:    similarity.DefaultOptions(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the mood of the song and the most similar stored songs of
// that mood. Stored songs are never classified again; new songs are scraped,
// classified and stored before ranking.
func (s *Service) Search(ctx context.Context, song, artist string) (*Result, error) {
	record, source, err := s.resolve(ctx, song, artist)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, record, source)
}

// Resolve is Search without ranking: it makes sure the song is stored and
// classified and returns it with an empty Similar list.
func (s *Service) Resolve(ctx context.Context, song, artist string) (*Result, error) {
	record, source, err := s.resolve(ctx, song, artist)
	if err != nil {
		return nil, err
	}
	return &Result{
		Song:   record.Song,
		Artist: record.Artist,
		Mood:   record.Mood,
		Source: source,
	}, nil
}

// resolve returns the stored record for the song, scraping, classifying and
// storing it first when needed.
func (s *Service) resolve(ctx context.Context, song, artist string) (*db.Song, Source, error) {
	song, artist = strings.TrimSpace(song), strings.TrimSpace(artist)
	if song == "" || artist == "" {
		return nil, "", fmt.Errorf("%w: song and artist are required", ErrInvalidInput)
	}
	log := s.logger.With(zap.String("song", song), zap.String("artist", artist))

	stored, err := s.lookup(ctx, db.KeyOf(song, artist))
	if err != nil {
		return nil, "", err
	}
	if stored != nil {
		log.Debug("cache hit", zap.String("mood", stored.Mood))
		return stored, SourceCache, nil
	}

	found, err := s.source.Search(ctx, song, artist)
	switch {
	case errors.Is(err, lyrics.ErrNotFound):
		log.Info("lyrics not found")
		return nil, "", fmt.Errorf("%w: %s by %s", ErrNotFound, song, artist)
	case err != nil:
		log.Warn("lyrics provider failed", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	// the provider may resolve the request to a song stored under its canonical name
	stored, err = s.lookup(ctx, db.KeyOf(found.Title, found.Artist))
	if err != nil {
		return nil, "", err
	}
	if stored != nil {
		log.Debug("canonical cache hit", zap.String("canonical_song", stored.Song))
		return stored, SourceCache, nil
	}

	text := lyrics.Normalize(found.Text)
	if text == "" {
		log.Info("provider returned blank lyrics")
		return nil, "", fmt.Errorf("%w: %s by %s", ErrNotFound, song, artist)
	}

	mood, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, "", fmt.Errorf("classifying lyrics: %w", err)
	}

	record := &db.Song{
		Song:   found.Title,
		Artist: found.Artist,
		Lyrics: text,
		Mood:   mood,
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, "", fmt.Errorf("storing song: %w", err)
	}
	log.Info("song classified",
		zap.String("canonical_song", record.Song),
		zap.String("canonical_artist", record.Artist),
		zap.String("mood", mood),
	)
	return record, SourceProvider, nil
}

// lookup returns the stored song or nil when there is none.
func (s *Service) lookup(ctx context.Context, key db.Key) (*db.Song, error) {
	stored, err := s.store.Get(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", key, err)
	}
	return stored, nil
}

// respond ranks the stored songs of the record's mood against it.
func (s *Service) respond(ctx context.Context, record *db.Song, source Source) (*Result, error) {
	matches, err := s.rank(ctx, record)
	if err != nil {
		return nil, err
	}
	s.link(ctx, matches)

	return &Result{
		Song:    record.Song,
		Artist:  record.Artist,
		Mood:    record.Mood,
		Similar: matches,
		Source:  source,
	}, nil
}

func (s *Service) rank(ctx context.Context, record *db.Song) ([]similarity.Match, error) {
	songs, err := s.store.ListByMood(ctx, record.Mood)
	if err != nil {
		return nil, fmt.Errorf("listing %s songs: %w", record.Mood, err)
	}

	pool := make([]similarity.Document, len(songs))
	for i, song := range songs {
		pool[i] = document(song)
	}

	matches, err := similarity.Rank(document(*record), pool, s.ranking)
	if errors.Is(err, similarity.ErrEmptyVocabulary) {
		s.logger.Debug("no comparable songs",
			zap.String("mood", record.Mood),
			zap.Int("pool", len(pool)),
		)
		return []similarity.Match{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ranking similar songs: %w", err)
	}
	return matches, nil
}

// link attaches streaming links. Lookup failures only cost the link.
func (s *Service) link(ctx context.Context, matches []similarity.Match) {
	if s.linker == nil {
		return
	}
	for i, m := range matches {
		url, err := s.linker.TrackURL(ctx, m.Song, m.Artist)
		if err != nil {
			if !errors.Is(err, spotify.ErrNoMatch) {
				s.logger.Warn("linking song", zap.String("song", m.Song), zap.Error(err))
			}
			continue
		}
		matches[i].SpotifyURL = url
	}
}

func document(song db.Song) similarity.Document {
	return similarity.Document{
		Key:    song.Key().String(),
		Song:   song.Song,
		Artist: song.Artist,
		Lyrics: song.Lyrics,
	}
}

// Classify normalizes raw lyrics and predicts their mood without storing
// anything.
func (s *Service) Classify(ctx context.Context, text string) (string, error) {
	normalized := lyrics.Normalize(text)
	if normalized == "" {
		return "", fmt.Errorf("%w: lyrics are empty", ErrInvalidInput)
	}
	mood, err := s.classifier.Classify(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("classifying lyrics: %w", err)
	}
	return mood, nil
}

// Preprocess returns the text the classifier tokenizes for raw lyrics.
func (s *Service) Preprocess(text string) string {
	return textproc.Process(lyrics.Normalize(text))
}

// Moods returns the number of stored songs per mood.
func (s *Service) Moods(ctx context.Context) (map[string]int, error) {
	counts, err := s.store.CountByMood(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting moods: %w", err)
	}
	return counts, nil
}

// Themes groups the stored songs of mood into k lyrical themes.
func (s *Service) Themes(ctx context.Context, mood string, k int) (*ThemeResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: theme count must be positive, got %d", ErrInvalidInput, k)
	}
	stored, err := s.store.ListByMood(ctx, mood)
	if err != nil {
		return nil, fmt.Errorf("listing %s songs: %w", mood, err)
	}

	songs := make([]clustering.Song, len(stored))
	for i, st := range stored {
		songs[i] = clustering.Song{Song: st.Song, Artist: st.Artist, Lyrics: st.Lyrics}
	}

	cfg := clustering.DefaultConfig()
	cfg.NumThemes = k
	cfg.Embedding = s.ranking
	themes, outliers, err := clustering.DetectThemes(songs, cfg)
	if err != nil {
		return nil, fmt.Errorf("detecting %s themes: %w", mood, err)
	}
	return &ThemeResult{Mood: mood, Themes: themes, Outliers: outliers}, nil
}
