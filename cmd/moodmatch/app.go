package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/moodmatch/internal/classifier"
	"github.com/justestif/moodmatch/internal/config"
	"github.com/justestif/moodmatch/internal/db"
	"github.com/justestif/moodmatch/internal/logging"
	"github.com/justestif/moodmatch/internal/lyrics"
	"github.com/justestif/moodmatch/internal/search"
	"github.com/justestif/moodmatch/internal/similarity"
	"github.com/justestif/moodmatch/internal/spotify"
)

// app holds the components shared by the subcommands. The classifier is
// loaded on first use so store-only commands work without model artifacts.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  db.SongStore

	mu    sync.Mutex
	model *classifier.Classifier
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(cmd.Context(), cfg.Store)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}

	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// classifier returns the loaded classifier, loading it on first call.
func (a *app) classifier() (*classifier.Classifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.model != nil {
		return a.model, nil
	}
	model, err := classifier.New(classifier.Config{
		ManifestPath: a.cfg.Model.Manifest,
		Watch:        a.cfg.Model.Watch,
	}, a.logger.Named("classifier"))
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	a.model = model
	return model, nil
}

// Classify implements search.MoodClassifier on top of the lazily loaded model.
func (a *app) Classify(ctx context.Context, text string) (string, error) {
	model, err := a.classifier()
	if err != nil {
		return "", err
	}
	return model.Classify(ctx, text)
}

func (a *app) ranking() similarity.Options {
	r := a.cfg.Ranking
	return similarity.Options{
		TopN:               r.TopN,
		MinDF:              r.MinDF,
		Components:         r.Components,
		Seed:               r.Seed,
		DuplicateThreshold: r.DuplicateThreshold,
	}
}

// service builds the search service. Without a provider only the store
// backed operations (classify, moods, themes) are usable.
func (a *app) service(ctx context.Context, withProvider bool) (*search.Service, error) {
	opts := []search.Option{
		search.WithRanking(a.ranking()),
		search.WithLogger(a.logger.Named("search")),
	}

	var source search.LyricsSource
	if withProvider {
		token, err := a.cfg.GeniusToken()
		if err != nil {
			return nil, err
		}
		source = lyrics.NewClient(lyrics.Config{
			Token:         token,
			BaseURL:       a.cfg.Genius.BaseURL,
			RatePerSecond: a.cfg.Genius.RatePerSecond,
		})

		if a.cfg.Spotify.Enabled() {
			client := spotify.NewWithCredentials(ctx, a.cfg.Spotify.ClientID, a.cfg.Spotify.ClientSecret)
			opts = append(opts, search.WithLinker(spotify.NewCachedLinker(client)))
		}
	}

	return search.NewService(a.store, source, a, opts...), nil
}

// withApp runs fn with a fresh app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
