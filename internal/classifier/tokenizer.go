package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const defaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

// Tokenizer maps words to the integer indices the network was trained with.
// It reads the JSON produced by a Keras Tokenizer's to_json().
type Tokenizer struct {
	wordIndex map[string]int
	numWords  int // 0 means unlimited
	filters   string
	lower     bool
	split     string
	oovIndex  int // 0 means no OOV token
}

type tokenizerFile struct {
	ClassName string `json:"class_name"`
	Config    struct {
		NumWords  *int    `json:"num_words"`
		Filters   *string `json:"filters"`
		Lower     *bool   `json:"lower"`
		Split     *string `json:"split"`
		OOVToken  *string `json:"oov_token"`
		WordIndex string  `json:"word_index"` // JSON encoded map
	} `json:"config"`
}

// LoadTokenizer reads a tokenizer export from path.
func LoadTokenizer(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tokenizer: %w", err)
	}
	return ParseTokenizer(data)
}

// ParseTokenizer decodes a tokenizer export.
func ParseTokenizer(data []byte) (*Tokenizer, error) {
	var f tokenizerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing tokenizer: %w", err)
	}

	t := &Tokenizer{
		filters: defaultFilters,
		lower:   true,
		split:   " ",
	}
	if err := json.Unmarshal([]byte(f.Config.WordIndex), &t.wordIndex); err != nil {
		return nil, fmt.Errorf("parsing tokenizer word_index: %w", err)
	}
	if f.Config.NumWords != nil {
		t.numWords = *f.Config.NumWords
	}
	if f.Config.Filters != nil {
		t.filters = *f.Config.Filters
	}
	if f.Config.Lower != nil {
		t.lower = *f.Config.Lower
	}
	if f.Config.Split != nil && *f.Config.Split != "" {
		t.split = *f.Config.Split
	}
	if f.Config.OOVToken != nil {
		idx, ok := t.wordIndex[*f.Config.OOVToken]
		if !ok {
			return nil, fmt.Errorf("oov token %q missing from word_index", *f.Config.OOVToken)
		}
		t.oovIndex = idx
	}
	return t, nil
}

// VocabularySize returns the largest index the tokenizer can emit plus one.
func (t *Tokenizer) VocabularySize() int {
	if t.numWords > 0 {
		return t.numWords
	}
	maxIdx := 0
	for _, idx := range t.wordIndex {
		maxIdx = max(maxIdx, idx)
	}
	return maxIdx + 1
}

// Sequence converts text to word indices. Unknown words map to the OOV index
// when the tokenizer has one and are dropped otherwise, as are words ranked
// at or beyond num_words.
func (t *Tokenizer) Sequence(text string) []int {
	if t.lower {
		text = strings.ToLower(text)
	}
	if t.filters != "" {
		text = strings.NewReplacer(t.filterPairs()...).Replace(text)
	}

	var seq []int
	for _, word := range strings.Split(text, t.split) {
		if word == "" {
			continue
		}
		idx, ok := t.wordIndex[word]
		switch {
		case ok && (t.numWords == 0 || idx < t.numWords):
			seq = append(seq, idx)
		case t.oovIndex > 0:
			seq = append(seq, t.oovIndex)
		}
	}
	return seq
}

// filterPairs replaces every filter character with the split string.
func (t *Tokenizer) filterPairs() []string {
	pairs := make([]string, 0, 2*len(t.filters))
	for _, r := range t.filters {
		pairs = append(pairs, string(r), t.split)
	}
	return pairs
}

// PadSequences pads seq with leading zeros or drops its leading entries so
// the result has exactly length entries.
func PadSequences(seq []int, length int) []int {
	out := make([]int, length)
	if len(seq) > length {
		seq = seq[len(seq)-length:]
	}
	copy(out[length-len(seq):], seq)
	return out
}
