package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/justestif/moodmatch/internal/db"
	"github.com/justestif/moodmatch/internal/lyrics"
)

// ErrBadDataset is returned when a dataset misses required columns or cannot
// be parsed.
var ErrBadDataset = errors.New("bad dataset")

// ImportStats summarizes an import.
type ImportStats struct {
	Rows       int
	Stored     int
	Classified int // rows stored with a predicted mood
	Skipped    int // rows without song, artist or lyrics
	Failed     int
}

// Import stores the rows of a CSV dataset with the header
// song,artist,lyrics[,mood]. Column order is free and names are case
// insensitive. Lyrics are normalized; rows without a mood are classified.
// A failing row is counted and logged, the import goes on.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var stats ImportStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("%w: reading header: %w", ErrBadDataset, err)
	}
	cols, err := columns(header)
	if err != nil {
		return stats, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("%w: %w", ErrBadDataset, err)
		}
		stats.Rows++

		song, classified, err := s.importRow(ctx, cols, record)
		switch {
		case err != nil:
			stats.Failed++
			line, _ := reader.FieldPos(0)
			s.logger.Warn("import row failed", zap.Int("line", line), zap.Error(err))
		case song == nil:
			stats.Skipped++
		default:
			stats.Stored++
			if classified {
				stats.Classified++
			}
		}
	}

	s.logger.Info("import finished",
		zap.Int("rows", stats.Rows),
		zap.Int("stored", stats.Stored),
		zap.Int("classified", stats.Classified),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// importRow stores one record. A nil song means the row was skipped.
func (s *Service) importRow(ctx context.Context, cols columnIndex, record []string) (*db.Song, bool, error) {
	song := &db.Song{
		Song:   strings.TrimSpace(cols.get(record, cols.song)),
		Artist: strings.TrimSpace(cols.get(record, cols.artist)),
		Lyrics: lyrics.Normalize(cols.get(record, cols.lyrics)),
		Mood:   strings.TrimSpace(cols.get(record, cols.mood)),
	}
	if song.Song == "" || song.Artist == "" || song.Lyrics == "" {
		return nil, false, nil
	}

	var classified bool
	if song.Mood == "" {
		mood, err := s.classifier.Classify(ctx, song.Lyrics)
		if err != nil {
			return nil, false, fmt.Errorf("classifying %s: %w", song.Key(), err)
		}
		song.Mood = mood
		classified = true
	}

	if err := s.store.Upsert(ctx, song); err != nil {
		return nil, false, fmt.Errorf("storing %s: %w", song.Key(), err)
	}
	return song, classified, nil
}

type columnIndex struct {
	song, artist, lyrics, mood int
}

func columns(header []string) (columnIndex, error) {
	cols := columnIndex{song: -1, artist: -1, lyrics: -1, mood: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "song":
			cols.song = i
		case "artist":
			cols.artist = i
		case "lyrics":
			cols.lyrics = i
		case "mood":
			cols.mood = i
		}
	}
	if cols.song < 0 || cols.artist < 0 || cols.lyrics < 0 {
		return cols, fmt.Errorf("%w: header needs song, artist and lyrics columns, got %q", ErrBadDataset, header)
	}
	return cols, nil
}

func (c columnIndex) get(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// ParseRefs reads one "song;artist" pair per line. Blank lines and lines
// starting with # are ignored.
func ParseRefs(r io.Reader) ([]SongRef, error) {
	var refs []SongRef
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		song, artist, ok := strings.Cut(line, ";")
		song, artist = strings.TrimSpace(song), strings.TrimSpace(artist)
		if !ok || song == "" || artist == "" {
			return nil, fmt.Errorf("%w: line %d: want \"song;artist\", got %q", ErrBadDataset, lineNo, line)
		}
		refs = append(refs, SongRef{Song: song, Artist: artist})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading song list: %w", err)
	}
	return refs, nil
}
