package classifier

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The test network detects the words "happy" and "sad": the embedding maps
// them to unit vectors, a width-1 identity convolution passes them through
// and the dense layer scores each class by its word.
const testWeights = `{
	"embedding": [[0, 0], [1, 0], [0, 1]],
	"conv": [{"kernel": [[[1, 0], [0, 1]]], "bias": [0, 0]}],
	"dense": [{"kernel": [[2, 0], [0, 2]], "bias": [0, 0], "activation": "softmax"}]
}`

func testTokenizer(t *testing.T, wordIndex map[string]int, extra map[string]any) []byte {
	t.Helper()
	index, err := json.Marshal(wordIndex)
	require.NoError(t, err)

	cfg := map[string]any{
		"num_words":  nil,
		"filters":    defaultFilters,
		"lower":      true,
		"split":      " ",
		"char_level": false,
		"oov_token":  nil,
		"word_index": string(index),
	}
	for k, v := range extra {
		cfg[k] = v
	}
	data, err := json.Marshal(map[string]any{"class_name": "Tokenizer", "config": cfg})
	require.NoError(t, err)
	return data
}

func writeArtifacts(t *testing.T, dir string) string {
	t.Helper()
	write := func(name string, data []byte) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	write("tokenizer.json", testTokenizer(t, map[string]int{"happy": 1, "sad": 2}, nil))
	write("weights.json", []byte(testWeights))
	write("labels.json", []byte(`["happy", "sad"]`))
	write("model.yaml", []byte("sequence_length: 8\ntokenizer: tokenizer.json\nweights: weights.json\nlabels: labels.json\n"))
	return filepath.Join(dir, "model.yaml")
}

func TestPadSequences(t *testing.T) {
	tests := []struct {
		name   string
		seq    []int
		length int
		want   []int
	}{
		{"pads at the front", []int{1, 2}, 4, []int{0, 0, 1, 2}},
		{"truncates at the front", []int{1, 2, 3, 4, 5}, 3, []int{3, 4, 5}},
		{"exact length", []int{7, 8}, 2, []int{7, 8}},
		{"empty", nil, 3, []int{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PadSequences(tt.seq, tt.length))
		})
	}
}

func TestTokenizer_Sequence(t *testing.T) {
	index := map[string]int{"<OOV>": 1, "love": 2, "you": 3, "baby": 4}

	tests := []struct {
		name  string
		extra map[string]any
		text  string
		want  []int
	}{
		{
			name: "drops unknown words without oov token",
			text: "I Love you, BABY!",
			want: []int{2, 3, 4},
		},
		{
			name:  "maps unknown words to oov token",
			extra: map[string]any{"oov_token": "<OOV>"},
			text:  "i love you baby",
			want:  []int{1, 2, 3, 4},
		},
		{
			name:  "num_words limits the vocabulary",
			extra: map[string]any{"num_words": 4},
			text:  "love you baby",
			want:  []int{2, 3},
		},
		{
			name: "filters split words",
			text: "love-you\tbaby",
			want: []int{2, 3, 4},
		},
		{
			name:  "case sensitive when lower is false",
			extra: map[string]any{"lower": false},
			text:  "Love you",
			want:  []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := ParseTokenizer(testTokenizer(t, index, tt.extra))
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok.Sequence(tt.text))
		})
	}
}

func TestParseTokenizer_Errors(t *testing.T) {
	_, err := ParseTokenizer([]byte(`{"config": {"word_index": "not json"}}`))
	assert.Error(t, err)

	_, err = ParseTokenizer(testTokenizer(t, map[string]int{"a": 1}, map[string]any{"oov_token": "<OOV>"}))
	assert.Error(t, err)
}

func TestModel_Predict(t *testing.T) {
	model, err := ParseModel([]byte(testWeights))
	require.NoError(t, err)
	assert.Equal(t, 3, model.VocabularySize())
	assert.Equal(t, 2, model.Classes())

	probs, err := model.Predict([]int{0, 0, 2})
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
	assert.Greater(t, probs[1], probs[0])

	_, err = model.Predict([]int{0, 5})
	assert.Error(t, err)
}

func TestModel_PredictWideKernelAndPooling(t *testing.T) {
	// one output channel that fires on the bigram (1, 2)
	weights := `{
		"embedding": [[0], [1], [2]],
		"conv": [{"kernel": [[[1]], [[10]]], "bias": [-20], "pool": 2}],
		"dense": [{"kernel": [[1]], "bias": [0], "activation": "linear"}]
	}`
	model, err := ParseModel([]byte(weights))
	require.NoError(t, err)

	got, err := model.Predict([]int{0, 1, 2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0], 1e-9) // 1*1 + 10*2 - 20

	got, err = model.Predict([]int{2, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got[0], 1e-9)

	_, err = model.Predict([]int{1})
	assert.Error(t, err, "sequence shorter than the kernel")
}

func TestParseModel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		weights string
	}{
		{"not json", `{`},
		{"no embedding", `{"dense": [{"kernel": [[1]], "bias": [0]}]}`},
		{"no dense", `{"embedding": [[1]]}`},
		{"dense shape mismatch", `{"embedding": [[1, 2]], "dense": [{"kernel": [[1]], "bias": [0]}]}`},
		{"bias mismatch", `{"embedding": [[1]], "dense": [{"kernel": [[1, 2]], "bias": [0]}]}`},
		{"conv channel mismatch", `{"embedding": [[1, 2]], "conv": [{"kernel": [[[1]]], "bias": [0]}], "dense": [{"kernel": [[1]], "bias": [0]}]}`},
		{"unknown activation", `{"embedding": [[1]], "dense": [{"kernel": [[1]], "bias": [0], "activation": "tanh"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.weights))
			assert.Error(t, err)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tokenizer: tok.json\nweights: /abs/w.json\nlabels: l.json\n"), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSequenceLength, m.SequenceLength)
	assert.Equal(t, filepath.Join(dir, "tok.json"), m.Tokenizer)
	assert.Equal(t, "/abs/w.json", m.Weights)
	assert.Equal(t, filepath.Join(dir, "l.json"), m.Labels)

	require.NoError(t, os.WriteFile(path, []byte("tokenizer: tok.json\n"), 0o644))
	_, err = LoadManifest(path)
	assert.Error(t, err)
}

func TestLabelEncoder(t *testing.T) {
	enc, err := NewLabelEncoder([]string{"angry", "calm"})
	require.NoError(t, err)

	label, err := enc.Label(1)
	require.NoError(t, err)
	assert.Equal(t, "calm", label)

	_, err = enc.Label(2)
	assert.Error(t, err)

	_, err = NewLabelEncoder([]string{"a", "a"})
	assert.Error(t, err)
	_, err = NewLabelEncoder(nil)
	assert.Error(t, err)
}

func TestClassifier_Classify(t *testing.T) {
	c, err := New(Config{ManifestPath: writeArtifacts(t, t.TempDir())}, zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		lyrics string
		want   string
	}{
		{"[Chorus]\nI am so SAD tonight", "sad"},
		{"Happy, happy days", "happy"},
		{"nothing we know", "happy"}, // all-zero logits tie on the first class
	}
	for _, tt := range tests {
		got, err := c.Classify(context.Background(), tt.lyrics)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.lyrics)
	}
	assert.Equal(t, []string{"happy", "sad"}, c.Labels())
}

func TestClassifier_NoModel(t *testing.T) {
	var c Classifier
	_, err := c.Classify(context.Background(), "happy")
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Nil(t, c.Labels())
}

func TestNew_MismatchedArtifacts(t *testing.T) {
	dir := t.TempDir()
	manifest := writeArtifacts(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.json"), []byte(`["happy", "sad", "calm"]`), 0o644))

	_, err := New(Config{ManifestPath: manifest}, nil)
	assert.Error(t, err)
}

func TestClassifier_ReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{ManifestPath: writeArtifacts(t, dir)}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "weights.json"), []byte("{broken"), 0o644))
	assert.Error(t, c.Reload())

	got, err := c.Classify(context.Background(), "sad")
	require.NoError(t, err)
	assert.Equal(t, "sad", got)
}

func TestClassifier_Watch(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{ManifestPath: writeArtifacts(t, dir), Watch: true}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()

	// the watcher registers asynchronously; keep rewriting until it reloads
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "labels.json"), []byte(`["joy", "sorrow"]`), 0o644)
		got, err := c.Classify(context.Background(), "sad")
		return err == nil && got == "sorrow"
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestClassifier_WatchDisabled(t *testing.T) {
	c, err := New(Config{ManifestPath: writeArtifacts(t, t.TempDir())}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, c.Watch(context.Background()))
}
