// Package similarity ranks songs by lyrical similarity: tf-idf vectors
// reduced with truncated SVD and compared by cosine similarity.
package similarity

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Document is a song taking part in a ranking.
type Document struct {
	Key    string
	Song   string
	Artist string
	Lyrics string
}

// Match is a ranked similar song. Similarity is a percentage rounded to two
// decimals.
type Match struct {
	Song       string  `json:"Song"`
	Artist     string  `json:"Artist"`
	Similarity float64 `json:"Similarity"`
	SpotifyURL string  `json:"SpotifyURL,omitempty"`
}

// Options control vectorization and ranking.
type Options struct {
	TopN       int
	MinDF      int
	Components int
	Seed       uint64
	// DuplicateThreshold clamps similarities at or above it to zero so a
	// second copy of the same lyrics never tops the list.
	DuplicateThreshold float64
}

// DefaultOptions returns the production ranking parameters.
func DefaultOptions() Options {
	return Options{
		TopN:               3,
		MinDF:              5,
		Components:         300,
		Seed:               42,
		DuplicateThreshold: 0.999,
	}
}

// Embedding is a fitted vector space for a set of documents.
type Embedding struct {
	// Vectors has one reduced row per document.
	Vectors *mat.Dense
	// Weights has the tf-idf row of each document over Terms.
	Weights *mat.Dense
	Terms   []string
}

// Embed vectorizes docs and reduces them to opts.Components dimensions.
func Embed(docs []string, opts Options) (*Embedding, error) {
	vec := Vectorizer{MinDF: opts.MinDF}
	weights, err := vec.FitTransform(docs)
	if err != nil {
		return nil, err
	}
	vectors, err := TruncatedSVD{Components: opts.Components, Seed: opts.Seed}.FitTransform(weights)
	if err != nil {
		return nil, fmt.Errorf("reducing tf-idf matrix: %w", err)
	}
	return &Embedding{Vectors: vectors, Weights: weights, Terms: vec.Vocabulary()}, nil
}

// Rank returns the pool songs most similar to query, best first. The query
// is added to the pool for fitting when its key is missing and is never
// part of the result. ErrEmptyVocabulary means the pool has too little text
// to compare.
func Rank(query Document, pool []Document, opts Options) ([]Match, error) {
	docs := pool
	queryIdx := slices.IndexFunc(pool, func(d Document) bool { return d.Key == query.Key })
	if queryIdx < 0 {
		docs = append(slices.Clip(pool), query)
		queryIdx = len(docs) - 1
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Lyrics
	}
	emb, err := Embed(texts, opts)
	if err != nil {
		return nil, err
	}

	q := emb.Vectors.RawRowView(queryIdx)
	sims := make([]float64, len(docs))
	for i := range docs {
		if i != queryIdx {
			sims[i] = Cosine(q, emb.Vectors.RawRowView(i))
		}
	}
	return selectTop(docs, sims, queryIdx, opts), nil
}

// selectTop drops the query, clamps duplicates and keeps the best opts.TopN
// documents. Ties keep pool order.
func selectTop(docs []Document, sims []float64, queryIdx int, opts Options) []Match {
	type scored struct {
		doc Document
		sim float64
	}
	candidates := make([]scored, 0, len(docs))
	for i, d := range docs {
		if i == queryIdx {
			continue
		}
		sim := sims[i]
		if sim >= opts.DuplicateThreshold {
			sim = 0
		}
		candidates = append(candidates, scored{doc: d, sim: sim})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(b.sim, a.sim)
	})
	if len(candidates) > opts.TopN {
		candidates = candidates[:max(opts.TopN, 0)]
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{
			Song:       c.doc.Song,
			Artist:     c.doc.Artist,
			Similarity: Percent(c.sim),
		}
	}
	return matches
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func Cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Percent converts a similarity to a percentage rounded to two decimals.
func Percent(sim float64) float64 {
	return math.Round(sim*100*100) / 100
}
