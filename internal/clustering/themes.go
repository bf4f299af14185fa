package clustering

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/justestif/moodmatch/internal/similarity"
)

// Config holds theme detection parameters.
type Config struct {
	NumThemes    int // Number of clusters to create (default: 3)
	MinThemeSize int // Minimum songs per theme (smaller clusters become outliers)
	TopTerms     int // Terms used to name a theme (default: 3)

	// Embedding controls the vector space the songs are clustered in.
	Embedding similarity.Options
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumThemes:    3,
		MinThemeSize: 1,
		TopTerms:     3,
		Embedding:    similarity.DefaultOptions(),
	}
}

// songObservation wraps a Song to implement the clusters.Observation interface.
type songObservation struct {
	index  int
	coords clusters.Coordinates
}

func (o songObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o songObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectThemes groups songs by lyrical similarity using k-means clustering.
// Returns themes, largest first, and outlier songs that don't fit into any
// theme. Songs without any vocabulary term are treated as outliers.
func DetectThemes(songs []Song, cfg Config) ([]Theme, []Song, error) {
	if len(songs) == 0 {
		return nil, nil, nil
	}

	// Apply defaults
	defaults := DefaultConfig()
	if cfg.NumThemes <= 0 {
		cfg.NumThemes = defaults.NumThemes
	}
	if cfg.TopTerms <= 0 {
		cfg.TopTerms = defaults.TopTerms
	}

	texts := make([]string, len(songs))
	for i, s := range songs {
		texts[i] = s.Lyrics
	}
	emb, err := similarity.Embed(texts, cfg.Embedding)
	if errors.Is(err, similarity.ErrEmptyVocabulary) {
		return nil, slices.Clone(songs), nil
	}
	if err != nil {
		return nil, nil, err
	}

	// Separate songs with and without vocabulary terms
	var obs clusters.Observations
	var outliers []Song
	for i := range songs {
		if floats.Norm(emb.Weights.RawRowView(i), 2) == 0 {
			outliers = append(outliers, songs[i])
			continue
		}
		obs = append(obs, songObservation{
			index:  i,
			coords: clusters.Coordinates(slices.Clone(emb.Vectors.RawRowView(i))),
		})
	}

	// If fewer valid songs than clusters, everything is an outlier
	if len(obs) < cfg.NumThemes {
		return nil, slices.Clone(songs), nil
	}

	// seeded from the global rand source, so partitions can differ between calls
	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumThemes)
	if err != nil {
		return nil, nil, fmt.Errorf("k-means partition: %w", err)
	}

	var themes []Theme
	for _, cluster := range result {
		var members []int
		for _, o := range cluster.Observations {
			if so, ok := o.(songObservation); ok {
				members = append(members, so.index)
			}
		}
		if len(members) == 0 {
			continue
		}
		slices.Sort(members)

		themeSongs := make([]Song, len(members))
		for i, idx := range members {
			themeSongs[i] = songs[idx]
		}

		// Check minimum size
		if len(members) < cfg.MinThemeSize {
			outliers = append(outliers, themeSongs...)
			continue
		}

		terms := extractTopTerms(emb.Weights, members, emb.Terms, cfg.TopTerms)
		themes = append(themes, Theme{
			Name:  themeName(terms),
			Terms: terms,
			Songs: themeSongs,
		})
	}

	// Largest themes first
	slices.SortStableFunc(themes, func(a, b Theme) int {
		if d := len(b.Songs) - len(a.Songs); d != 0 {
			return d
		}
		return strings.Compare(a.Name, b.Name)
	})

	return themes, outliers, nil
}

// extractTopTerms returns the n terms with the largest summed tf-idf weight
// over the member rows.
func extractTopTerms(weights *mat.Dense, members []int, vocabulary []string, n int) []string {
	if len(vocabulary) == 0 {
		return nil
	}

	type termWeight struct {
		name   string
		weight float64
	}
	totals := make([]termWeight, len(vocabulary))
	for j, name := range vocabulary {
		totals[j].name = name
		for _, i := range members {
			totals[j].weight += weights.At(i, j)
		}
	}

	// Sort by weight (descending), vocabulary order breaks ties
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].weight > totals[j].weight
	})

	// Take top N with weight > 0
	result := make([]string, 0, n)
	for i := 0; i < len(totals) && len(result) < n; i++ {
		if totals[i].weight > 0 {
			result = append(result, totals[i].name)
		}
	}
	return result
}

// themeName creates a descriptive name from the top terms.
func themeName(terms []string) string {
	if len(terms) == 0 {
		return "Mixed"
	}
	return strings.Join(terms, " & ")
}
