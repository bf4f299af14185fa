package spotify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// CacheTTL is the duration after which cached links are considered stale.
const CacheTTL = 24 * time.Hour

// URLFinder looks up the Spotify link of a song. *Client implements it.
type URLFinder interface {
	TrackURL(ctx context.Context, song, artist string) (string, error)
}

type cachedURL struct {
	url       string
	noMatch   bool
	fetchedAt time.Time
}

// CachedLinker memoizes TrackURL lookups, including misses, for CacheTTL.
// Other errors are not cached.
type CachedLinker struct {
	finder URLFinder
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cachedURL
}

// NewCachedLinker wraps finder with an in-memory cache.
func NewCachedLinker(finder URLFinder) *CachedLinker {
	return &CachedLinker{
		finder:  finder,
		now:     time.Now,
		entries: make(map[string]cachedURL),
	}
}

// TrackURL returns the cached link when fresh and asks the finder otherwise.
func (c *CachedLinker) TrackURL(ctx context.Context, song, artist string) (string, error) {
	key := strings.ToLower(song) + "\x00" + strings.ToLower(artist)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	// Check if stale (lazy invalidation)
	if ok && c.now().Sub(entry.fetchedAt) < CacheTTL {
		if entry.noMatch {
			return "", ErrNoMatch
		}
		return entry.url, nil
	}

	url, err := c.finder.TrackURL(ctx, song, artist)
	switch {
	case errors.Is(err, ErrNoMatch):
		entry = cachedURL{noMatch: true, fetchedAt: c.now()}
	case err != nil:
		return "", err
	default:
		entry = cachedURL{url: url, fetchedAt: c.now()}
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return url, err
}
