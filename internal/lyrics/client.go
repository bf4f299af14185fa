// Package lyrics retrieves song lyrics from the Genius API and normalizes
// them for storage and classification.
package lyrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.genius.com"
	userAgent      = "moodmatch/1.0"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when the provider has no lyrics for the song.
	ErrNotFound = errors.New("lyrics not found")

	// ErrProvider matches every *ProviderError.
	ErrProvider = errors.New("lyrics provider error")

	// ErrInvalidToken is returned when the provider rejects the API token.
	ErrInvalidToken = errors.New("invalid API token")
)

// ProviderError wraps a failure talking to the lyrics provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProvider) true for any ProviderError.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Config holds Genius API configuration.
type Config struct {
	Token         string
	BaseURL       string  // defaults to https://api.genius.com
	RatePerSecond float64 // <= 0 disables throttling
}

// Client is a Genius API client. Requests are throttled with a token bucket
// and never retried.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a new Genius client from the provided configuration.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		token: cfg.Token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: base,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Search finds the song on Genius and scrapes its lyrics. The returned
// Lyrics carry the provider's canonical title and artist.
func (c *Client) Search(ctx context.Context, song, artist string) (*Lyrics, error) {
	params := url.Values{"q": {strings.TrimSpace(song + " " + artist)}}

	body, err := c.get(ctx, c.baseURL+"/search?"+params.Encode(), true)
	if err != nil {
		return nil, &ProviderError{Op: "searching song", Err: err}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Op: "parsing search response", Err: err}
	}

	match, ok := pickHit(resp.Response.Hits, song, artist)
	if !ok {
		return nil, ErrNotFound
	}

	page, err := c.get(ctx, match.URL, false)
	if err != nil {
		return nil, &ProviderError{Op: "fetching song page", Err: err}
	}

	text, err := extractLyrics(bytes.NewReader(page))
	if err != nil {
		return nil, &ProviderError{Op: "scraping song page", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNotFound
	}

	return &Lyrics{
		Title:  match.Title,
		Artist: match.PrimaryArtist.Name,
		URL:    match.URL,
		Text:   text,
	}, nil
}

// pickHit selects the best song hit: exact title and artist, then artist
// only, then the first song hit.
func pickHit(hits []searchHit, song, artist string) (songMatch, bool) {
	wantTitle, wantArtist := matchKey(song), matchKey(artist)

	var songs []songMatch
	for _, h := range hits {
		if h.Type == "song" && h.Result.URL != "" {
			songs = append(songs, h.Result)
		}
	}
	if len(songs) == 0 {
		return songMatch{}, false
	}

	for _, s := range songs {
		if matchKey(s.Title) == wantTitle && matchKey(s.PrimaryArtist.Name) == wantArtist {
			return s, true
		}
	}
	for _, s := range songs {
		if matchKey(s.PrimaryArtist.Name) == wantArtist {
			return s, true
		}
	}
	return songs[0], true
}

// matchKey folds accents, lowercases and keeps only letters and digits, so
// "Beyoncé" matches "beyonce".
func matchKey(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC), s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// get performs a single throttled GET request.
func (c *Client) get(ctx context.Context, reqURL string, authorized bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidToken
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
