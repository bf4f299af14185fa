package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSequenceLength is the padded input length the network was trained on.
const DefaultSequenceLength = 180

// Manifest describes the classifier artifacts. Paths are relative to the
// manifest file.
type Manifest struct {
	SequenceLength int    `yaml:"sequence_length"`
	Tokenizer      string `yaml:"tokenizer"`
	Weights        string `yaml:"weights"`
	Labels         string `yaml:"labels"`
}

// LoadManifest reads the YAML manifest at path and resolves artifact paths.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.SequenceLength == 0 {
		m.SequenceLength = DefaultSequenceLength
	}
	if m.SequenceLength < 0 {
		return nil, fmt.Errorf("manifest %s: negative sequence_length %d", path, m.SequenceLength)
	}

	dir := filepath.Dir(path)
	for _, p := range []*string{&m.Tokenizer, &m.Weights, &m.Labels} {
		if *p == "" {
			return nil, errors.New("manifest must name tokenizer, weights and labels")
		}
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return &m, nil
}

// Files returns the artifact paths named by the manifest.
func (m *Manifest) Files() []string {
	return []string{m.Tokenizer, m.Weights, m.Labels}
}
