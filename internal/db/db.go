// Package db provides song persistence for moodmatch. A SongStore is backed
// by SQLite, PostgreSQL or MongoDB.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/justestif/moodmatch/internal/config"
)

// Common errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrEmptyMood = errors.New("song has no mood")
)

// SongStore persists classified songs keyed by (song, artist).
type SongStore interface {
	// Get returns the stored song for key or ErrNotFound.
	Get(ctx context.Context, key Key) (*Song, error)

	// ListByMood returns every song with the mood in insertion order.
	ListByMood(ctx context.Context, mood string) ([]Song, error)

	// Upsert inserts the song or replaces the stored one with the same key.
	// ID and CreatedAt of an existing song are kept and written back to s.
	Upsert(ctx context.Context, s *Song) error

	// CountByMood returns the number of stored songs per mood.
	CountByMood(ctx context.Context) (map[string]int, error)

	Close() error
}

// Open connects to the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (SongStore, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres.URL)
	case "mongo":
		return OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}

// prepare validates s and fills the identity fields every backend derives.
func prepare(s *Song) (Key, error) {
	if s.Mood == "" {
		return Key{}, fmt.Errorf("storing %s: %w", KeyOf(s.Song, s.Artist), ErrEmptyMood)
	}
	return KeyOf(s.Song, s.Artist), nil
}
