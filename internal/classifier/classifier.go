// Package classifier predicts the mood of song lyrics with a pretrained text
// CNN. Artifacts (tokenizer, weights, labels) are described by a YAML
// manifest and can be hot reloaded.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/justestif/moodmatch/internal/textproc"
)

// ErrNoModel is returned when no artifacts have been loaded.
var ErrNoModel = errors.New("no classifier model loaded")

// reloadDebounce batches the burst of events produced by copying artifacts.
const reloadDebounce = 300 * time.Millisecond

// Config locates the artifacts.
type Config struct {
	ManifestPath string
	Watch        bool
}

// artifacts is one immutable, consistent set of loaded files.
type artifacts struct {
	manifest  *Manifest
	tokenizer *Tokenizer
	model     *Model
	labels    *LabelEncoder
}

// Classifier predicts mood labels. It is safe for concurrent use.
type Classifier struct {
	cfg     Config
	logger  *zap.Logger
	current atomic.Pointer[artifacts]
}

// New loads the artifacts named by cfg.ManifestPath.
func New(cfg Config, logger *zap.Logger) (*Classifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{cfg: cfg, logger: logger}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload loads the artifacts again and swaps them in. On failure the
// previous artifacts stay active.
func (c *Classifier) Reload() error {
	a, err := load(c.cfg.ManifestPath)
	if err != nil {
		return err
	}
	c.current.Store(a)
	return nil
}

func load(manifestPath string) (*artifacts, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadTokenizer(m.Tokenizer)
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(m.Weights)
	if err != nil {
		return nil, err
	}
	labels, err := LoadLabels(m.Labels)
	if err != nil {
		return nil, err
	}

	if got, want := len(labels.classes), model.Classes(); got != want {
		return nil, fmt.Errorf("labels list %d classes but model outputs %d", got, want)
	}
	if tok.VocabularySize() > model.VocabularySize() {
		return nil, fmt.Errorf("tokenizer emits indices up to %d but embedding has %d rows",
			tok.VocabularySize()-1, model.VocabularySize())
	}
	return &artifacts{manifest: m, tokenizer: tok, model: model, labels: labels}, nil
}

// Classify returns the mood label for the lyrics.
func (c *Classifier) Classify(ctx context.Context, lyrics string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a := c.current.Load()
	if a == nil {
		return "", ErrNoModel
	}

	seq := a.tokenizer.Sequence(textproc.Process(lyrics))
	probs, err := a.model.Predict(PadSequences(seq, a.manifest.SequenceLength))
	if err != nil {
		return "", fmt.Errorf("predicting mood: %w", err)
	}
	return a.labels.Label(floats.MaxIdx(probs))
}

// Labels returns the moods the loaded model can predict.
func (c *Classifier) Labels() []string {
	a := c.current.Load()
	if a == nil {
		return nil
	}
	return a.labels.Classes()
}

// Watch reloads the artifacts whenever the manifest or an artifact file
// changes. It blocks until ctx is cancelled. Watch is a no-op unless
// Config.Watch is set.
func (c *Classifier) Watch(ctx context.Context) error {
	if !c.cfg.Watch {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	tracked, err := c.watchFiles(watcher)
	if err != nil {
		return err
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !tracked[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !pending {
				timer.Reset(reloadDebounce)
				pending = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("artifact watch error", zap.Error(err))
		case <-timer.C:
			pending = false
			if err := c.Reload(); err != nil {
				c.logger.Error("reloading classifier, keeping previous model", zap.Error(err))
				continue
			}
			c.logger.Info("classifier reloaded", zap.Strings("labels", c.Labels()))
			if tracked, err = c.watchFiles(watcher); err != nil {
				c.logger.Warn("updating artifact watch list", zap.Error(err))
			}
		}
	}
}

// watchFiles adds the directories of every artifact to the watcher and
// returns the set of files whose changes trigger a reload.
func (c *Classifier) watchFiles(watcher *fsnotify.Watcher) (map[string]bool, error) {
	files := []string{c.cfg.ManifestPath}
	if a := c.current.Load(); a != nil {
		files = append(files, a.manifest.Files()...)
	}

	tracked := make(map[string]bool, len(files))
	for _, f := range files {
		f = filepath.Clean(f)
		tracked[f] = true
		if err := watcher.Add(filepath.Dir(f)); err != nil {
			return nil, fmt.Errorf("watching %s: %w", filepath.Dir(f), err)
		}
	}
	return tracked, nil
}
