package similarity

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/justestif/moodmatch/internal/textproc"
)

// ErrEmptyVocabulary is returned when no term reaches the document frequency
// threshold.
var ErrEmptyVocabulary = errors.New("empty vocabulary")

// Vectorizer turns documents into L2-normalized tf-idf rows. Tokens are runs
// of two or more word characters, lowercased, with English stop words removed.
type Vectorizer struct {
	// MinDF is the minimum number of documents a term must appear in.
	MinDF int

	vocabulary []string
	idf        []float64
}

// Vocabulary returns the fitted terms in column order.
func (v *Vectorizer) Vocabulary() []string {
	return v.vocabulary
}

// FitTransform learns the vocabulary and idf weights from docs and returns
// the tf-idf matrix with one row per document.
func (v *Vectorizer) FitTransform(docs []string) (*mat.Dense, error) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, w := range textproc.ContentWords(doc) {
			counts[i][w]++
		}
		for w := range counts[i] {
			df[w]++
		}
	}

	minDF := max(v.MinDF, 1)
	v.vocabulary = v.vocabulary[:0]
	for w, n := range df {
		if n >= minDF {
			v.vocabulary = append(v.vocabulary, w)
		}
	}
	if len(v.vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}
	slices.Sort(v.vocabulary)

	// smooth idf: ln((1+n)/(1+df)) + 1
	n := float64(len(docs))
	v.idf = make([]float64, len(v.vocabulary))
	for j, w := range v.vocabulary {
		v.idf[j] = math.Log((1+n)/(1+float64(df[w]))) + 1
	}

	x := mat.NewDense(len(docs), len(v.vocabulary), nil)
	for i := range docs {
		row := x.RawRowView(i)
		for j, w := range v.vocabulary {
			row[j] = float64(counts[i][w]) * v.idf[j]
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return x, nil
}
