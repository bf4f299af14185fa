package clustering

import (
	"fmt"
	"strings"
)

const sampleSongCount = 3

// FormatThemeSummary returns a human-readable summary of detected themes.
// Shows the name, song count, and first 3 sample songs for each theme.
// Outliers are summarized by count only.
func FormatThemeSummary(mood string, themes []Theme, outliers []Song) string {
	var sb strings.Builder

	// Calculate total songs
	totalSongs := len(outliers)
	for _, theme := range themes {
		totalSongs += len(theme.Songs)
	}

	// Header
	if len(themes) == 0 {
		sb.WriteString(fmt.Sprintf("No %s themes found from %d songs", mood, totalSongs))
		if len(outliers) > 0 {
			sb.WriteString(fmt.Sprintf(" (%d outliers skipped)", len(outliers)))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Found %d %s %s from %d songs",
		len(themes), mood, plural(len(themes), "theme", "themes"), totalSongs))
	if len(outliers) > 0 {
		sb.WriteString(fmt.Sprintf(" (%d outliers skipped)", len(outliers)))
	}
	sb.WriteString("\n")

	for i, theme := range themes {
		sb.WriteString("\n")
		sb.WriteString(formatTheme(i+1, theme))
	}

	return sb.String()
}

// formatTheme formats a single theme with its sample songs.
func formatTheme(num int, theme Theme) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Theme %d: %s (%d %s)\n",
		num, theme.Name, len(theme.Songs), plural(len(theme.Songs), "song", "songs")))

	// Show sample songs (first 3)
	sampleCount := min(sampleSongCount, len(theme.Songs))
	for i := 0; i < sampleCount; i++ {
		song := theme.Songs[i]
		sb.WriteString(fmt.Sprintf("  • \"%s\" - %s\n", song.Song, song.Artist))
	}

	// Show "and N more" if needed
	remaining := len(theme.Songs) - sampleSongCount
	if remaining > 0 {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", remaining))
	}

	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
