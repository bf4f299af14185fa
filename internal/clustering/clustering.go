// Package clustering groups the songs of a mood into lyrical themes with
// k-means over their reduced tf-idf vectors.
package clustering

// Song is a song taking part in theme detection.
type Song struct {
	Song   string
	Artist string
	Lyrics string
}

// Theme is a group of songs with similar lyrics.
type Theme struct {
	Name  string   // Descriptive name: "love & night & heart"
	Terms []string // Top terms of the theme, heaviest first
	Songs []Song
}
