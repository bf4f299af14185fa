package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zmb3/spotify/v2"
)

func TestConvertTrack(t *testing.T) {
	tests := []struct {
		name           string
		full           spotify.FullTrack
		expectedID     string
		expectedName   string
		expectedArtist string
		expectedURL    string
	}{
		{
			name: "single artist",
			full: spotify.FullTrack{
				SimpleTrack: spotify.SimpleTrack{
					ID:           "track123",
					Name:         "Test Song",
					Artists:      []spotify.SimpleArtist{{Name: "Artist One"}},
					ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/track123"},
				},
			},
			expectedID:     "track123",
			expectedName:   "Test Song",
			expectedArtist: "Artist One",
			expectedURL:    "https://open.spotify.com/track/track123",
		},
		{
			name: "multiple artists",
			full: spotify.FullTrack{
				SimpleTrack: spotify.SimpleTrack{
					ID:   "track456",
					Name: "Collab Track",
					Artists: []spotify.SimpleArtist{
						{Name: "Artist A"},
						{Name: "Artist B"},
						{Name: "Artist C"},
					},
				},
			},
			expectedID:     "track456",
			expectedName:   "Collab Track",
			expectedArtist: "Artist A, Artist B, Artist C",
		},
		{
			name: "no artists",
			full: spotify.FullTrack{
				SimpleTrack: spotify.SimpleTrack{
					ID:      "track000",
					Name:    "Unknown Track",
					Artists: []spotify.SimpleArtist{},
				},
			},
			expectedID:     "track000",
			expectedName:   "Unknown Track",
			expectedArtist: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertTrack(tt.full)

			if got.ID != tt.expectedID {
				t.Errorf("ID = %q, want %q", got.ID, tt.expectedID)
			}
			if got.Name != tt.expectedName {
				t.Errorf("Name = %q, want %q", got.Name, tt.expectedName)
			}
			if got.Artist != tt.expectedArtist {
				t.Errorf("Artist = %q, want %q", got.Artist, tt.expectedArtist)
			}
			if got.URL != tt.expectedURL {
				t.Errorf("URL = %q, want %q", got.URL, tt.expectedURL)
			}
		})
	}
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		song, artist string
		want         string
	}{
		{"Mockingbird", "Eminem", `track:"Mockingbird" artist:"Eminem"`},
		{` Say "Hello" `, "", `track:"Say Hello"`},
	}

	for _, tt := range tests {
		if got := searchQuery(tt.song, tt.artist); got != tt.want {
			t.Errorf("searchQuery(%q, %q) = %q, want %q", tt.song, tt.artist, got, tt.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/")))
}

func TestTrackURL(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tracks": {"items": [{
			"id": "abc",
			"name": "Mockingbird",
			"artists": [{"name": "Eminem"}],
			"external_urls": {"spotify": "https://open.spotify.com/track/abc"}
		}], "total": 1, "limit": 1, "offset": 0}}`)
	})

	url, err := client.TrackURL(context.Background(), "Mockingbird", "Eminem")
	if err != nil {
		t.Fatalf("TrackURL() error = %v", err)
	}
	if url != "https://open.spotify.com/track/abc" {
		t.Errorf("TrackURL() = %q", url)
	}
	if want := `track:"Mockingbird" artist:"Eminem"`; gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

func TestTrackURL_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tracks": {"items": [], "total": 0}}`)
	})

	_, err := client.TrackURL(context.Background(), "Nothing", "Nobody")
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("TrackURL() error = %v, want ErrNoMatch", err)
	}
}

func TestTrackURL_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"status": 403, "message": "forbidden"}}`)
	})

	_, err := client.TrackURL(context.Background(), "Song", "Artist")
	if err == nil || errors.Is(err, ErrNoMatch) {
		t.Errorf("TrackURL() error = %v, want API error", err)
	}
}
