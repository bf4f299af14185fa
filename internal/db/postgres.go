package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS songs (
	seq        BIGSERIAL,
	id         UUID PRIMARY KEY,
	song_key   TEXT NOT NULL,
	artist_key TEXT NOT NULL,
	song       TEXT NOT NULL,
	artist     TEXT NOT NULL,
	lyrics     TEXT NOT NULL,
	mood       TEXT NOT NULL CHECK (mood <> ''),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (song_key, artist_key)
);
CREATE INDEX IF NOT EXISTS songs_mood_seq ON songs (mood, seq);
`

// PostgresStore is a SongStore backed by a PostgreSQL connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a connection pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Get retrieves a song by key.
func (s *PostgresStore) Get(ctx context.Context, key Key) (*Song, error) {
	query := `
		SELECT id, song, artist, lyrics, mood, created_at
		FROM songs
		WHERE song_key = $1 AND artist_key = $2
	`
	var song Song
	err := s.pool.QueryRow(ctx, query, key.Song, key.Artist).Scan(
		&song.ID,
		&song.Song,
		&song.Artist,
		&song.Lyrics,
		&song.Mood,
		&song.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song %s: %w", key, err)
	}
	return &song, nil
}

// ListByMood retrieves all songs with the mood in insertion order.
func (s *PostgresStore) ListByMood(ctx context.Context, mood string) ([]Song, error) {
	query := `
		SELECT id, song, artist, lyrics, mood, created_at
		FROM songs
		WHERE mood = $1
		ORDER BY seq
	`
	rows, err := s.pool.Query(ctx, query, mood)
	if err != nil {
		return nil, fmt.Errorf("querying songs by mood: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var song Song
		if err := rows.Scan(
			&song.ID,
			&song.Song,
			&song.Artist,
			&song.Lyrics,
			&song.Mood,
			&song.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// Upsert creates or updates a song.
func (s *PostgresStore) Upsert(ctx context.Context, song *Song) error {
	key, err := prepare(song)
	if err != nil {
		return err
	}
	if song.ID == uuid.Nil {
		song.ID = uuid.New()
	}

	query := `
		INSERT INTO songs (id, song_key, artist_key, song, artist, lyrics, mood, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (song_key, artist_key) DO UPDATE SET
			song = EXCLUDED.song,
			artist = EXCLUDED.artist,
			lyrics = EXCLUDED.lyrics,
			mood = EXCLUDED.mood
		RETURNING id, created_at
	`
	err = s.pool.QueryRow(ctx, query,
		song.ID,
		key.Song,
		key.Artist,
		song.Song,
		song.Artist,
		song.Lyrics,
		song.Mood,
	).Scan(&song.ID, &song.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting song: %w", err)
	}
	return nil
}

// CountByMood returns the number of songs per mood.
func (s *PostgresStore) CountByMood(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT mood, COUNT(*) FROM songs GROUP BY mood`)
	if err != nil {
		return nil, fmt.Errorf("counting songs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mood string
		var n int
		if err := rows.Scan(&mood, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[mood] = n
	}
	return counts, rows.Err()
}
