// Package ingest fills the song store in bulk, either by running songs
// through the search pipeline or by importing an already scraped dataset.
package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/justestif/moodmatch/internal/db"
	"github.com/justestif/moodmatch/internal/search"
)

// Default concurrency for batch processing.
const DefaultConcurrency = 5

// SongRef names a song to ingest.
type SongRef struct {
	Song   string
	Artist string
}

// Outcome is the result of ingesting one SongRef.
type Outcome struct {
	Ref    SongRef
	Song   string // canonical name, empty on error
	Artist string
	Mood   string
	Source search.Source
	Err    error // Non-nil if ingesting failed
}

// Resolver runs a song through lookup, scraping, classification and storage
// without ranking. *search.Service implements it.
type Resolver interface {
	Resolve(ctx context.Context, song, artist string) (*search.Result, error)
}

// Classifier predicts the mood of normalized lyrics.
type Classifier interface {
	Classify(ctx context.Context, lyrics string) (string, error)
}

// Service ingests songs into a store.
type Service struct {
	resolver    Resolver
	store       db.SongStore
	classifier  Classifier
	concurrency int
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of concurrent ingest operations.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
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

// NewService creates a new ingest service.
func NewService(resolver Resolver, store db.SongStore, classifier Classifier, opts ...Option) *Service {
	s := &Service{
		resolver:    resolver,
		store:       store,
		classifier:  classifier,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest resolves every ref concurrently. Stored songs are not scraped again
// and nothing is ranked.
// Results are returned in the same order as refs.
// Individual failures are captured in Outcome.Err rather than failing the batch.
func (s *Service) Ingest(ctx context.Context, refs []SongRef) ([]Outcome, error) {
	if len(refs) == 0 {
		return []Outcome{}, nil
	}

	results := make([]Outcome, len(refs))

	type workItem struct {
		index int
		ref   SongRef
	}
	workCh := make(chan workItem, len(refs))
	for i, ref := range refs {
		workCh <- workItem{index: i, ref: ref}
	}
	close(workCh)

	var wg sync.WaitGroup
	for range s.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				select {
				case <-ctx.Done():
					results[work.index] = Outcome{Ref: work.ref, Err: ctx.Err()}
					continue
				default:
				}
				results[work.index] = s.ingestOne(ctx, work.ref)
			}
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

func (s *Service) ingestOne(ctx context.Context, ref SongRef) Outcome {
	result, err := s.resolver.Resolve(ctx, ref.Song, ref.Artist)
	if err != nil {
		s.logger.Warn("ingest failed",
			zap.String("song", ref.Song),
			zap.String("artist", ref.Artist),
			zap.Error(err),
		)
		return Outcome{Ref: ref, Err: err}
	}
	return Outcome{
		Ref:    ref,
		Song:   result.Song,
		Artist: result.Artist,
		Mood:   result.Mood,
		Source: result.Source,
	}
}
