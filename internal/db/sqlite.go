package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS songs (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	song_key   TEXT NOT NULL,
	artist_key TEXT NOT NULL,
	song       TEXT NOT NULL,
	artist     TEXT NOT NULL,
	lyrics     TEXT NOT NULL,
	mood       TEXT NOT NULL CHECK (mood <> ''),
	created_at TEXT NOT NULL,
	UNIQUE (song_key, artist_key)
);
CREATE INDEX IF NOT EXISTS songs_mood_seq ON songs (mood, seq);
`

// SQLiteStore is a SongStore backed by a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves a song by key.
func (s *SQLiteStore) Get(ctx context.Context, key Key) (*Song, error) {
	query := `
		SELECT id, song, artist, lyrics, mood, created_at
		FROM songs
		WHERE song_key = ? AND artist_key = ?
	`
	song, err := scanSQLiteSong(s.db.QueryRowContext(ctx, query, key.Song, key.Artist))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song %s: %w", key, err)
	}
	return song, nil
}

// ListByMood retrieves all songs with the mood in insertion order.
func (s *SQLiteStore) ListByMood(ctx context.Context, mood string) ([]Song, error) {
	query := `
		SELECT id, song, artist, lyrics, mood, created_at
		FROM songs
		WHERE mood = ?
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, mood)
	if err != nil {
		return nil, fmt.Errorf("querying songs by mood: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSQLiteSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}

// Upsert creates or updates a song.
func (s *SQLiteStore) Upsert(ctx context.Context, song *Song) error {
	key, err := prepare(song)
	if err != nil {
		return err
	}
	if song.ID == uuid.Nil {
		song.ID = uuid.New()
	}

	query := `
		INSERT INTO songs (id, song_key, artist_key, song, artist, lyrics, mood, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (song_key, artist_key) DO UPDATE SET
			song = excluded.song,
			artist = excluded.artist,
			lyrics = excluded.lyrics,
			mood = excluded.mood
		RETURNING id, created_at
	`
	var id, createdAt string
	err = s.db.QueryRowContext(ctx, query,
		song.ID.String(),
		key.Song,
		key.Artist,
		song.Song,
		song.Artist,
		song.Lyrics,
		song.Mood,
		time.Now().UTC().Format(time.RFC3339Nano),
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("upserting song: %w", err)
	}

	if song.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("parsing song id: %w", err)
	}
	if song.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	return nil
}

// CountByMood returns the number of songs per mood.
func (s *SQLiteStore) CountByMood(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mood, COUNT(*) FROM songs GROUP BY mood`)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSong(row rowScanner) (*Song, error) {
	var song Song
	var id, createdAt string
	if err := row.Scan(&id, &song.Song, &song.Artist, &song.Lyrics, &song.Mood, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if song.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing song id: %w", err)
	}
	if song.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &song, nil
}
