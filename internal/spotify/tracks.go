package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// ErrNoMatch is returned when the catalog has no track for a song.
var ErrNoMatch = errors.New("no matching spotify track")

// Track is a catalog match for a song.
type Track struct {
	ID     string
	Name   string
	Artist string // Comma-separated artist names
	URL    string
}

// FindTrack searches the catalog for the best match of song by artist.
func (c *Client) FindTrack(ctx context.Context, song, artist string) (*Track, error) {
	results, err := c.api.Search(ctx, searchQuery(song, artist), spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("searching track: %w", err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, ErrNoMatch
	}

	track := convertTrack(results.Tracks.Tracks[0])
	return &track, nil
}

// TrackURL returns the open.spotify.com link for song by artist.
func (c *Client) TrackURL(ctx context.Context, song, artist string) (string, error) {
	track, err := c.FindTrack(ctx, song, artist)
	if err != nil {
		return "", err
	}
	if track.URL == "" {
		return "", ErrNoMatch
	}
	return track.URL, nil
}

// searchQuery builds a field-filtered query. Quotes would end a filter
// value early, so they are dropped.
func searchQuery(song, artist string) string {
	clean := strings.NewReplacer(`"`, "", "\n", " ").Replace
	q := fmt.Sprintf("track:%q", clean(strings.TrimSpace(song)))
	if a := clean(strings.TrimSpace(artist)); a != "" {
		q += fmt.Sprintf(" artist:%q", a)
	}
	return q
}

// convertTrack converts a Spotify FullTrack to a Track.
func convertTrack(full spotify.FullTrack) Track {
	// Join artist names
	artists := make([]string, len(full.Artists))
	for i, a := range full.Artists {
		artists[i] = a.Name
	}

	return Track{
		ID:     full.ID.String(),
		Name:   full.Name,
		Artist: strings.Join(artists, ", "),
		URL:    full.ExternalURLs["spotify"],
	}
}
