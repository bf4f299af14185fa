package db

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Song is a classified song with its lyrics.
type Song struct {
	ID        uuid.UUID
	Song      string
	Artist    string
	Lyrics    string
	Mood      string
	CreatedAt time.Time
}

// Key returns the identity key of the song.
func (s Song) Key() Key {
	return KeyOf(s.Song, s.Artist)
}

// Key identifies a song regardless of case, accents and spacing.
type Key struct {
	Song   string
	Artist string
}

// String renders the key as "<song>_<artist>".
func (k Key) String() string {
	return k.Song + "_" + k.Artist
}

// KeyOf builds the identity key for a song and artist.
func KeyOf(song, artist string) Key {
	return Key{Song: normalizeKey(song), Artist: normalizeKey(artist)}
}

func normalizeKey(s string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = norm.NFKC.String(s)
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
