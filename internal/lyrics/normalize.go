package lyrics

import (
	"regexp"
	"strings"
)

var (
	// "[Chorus]", "[Verse 1: Eminem]", "[Intro]" ...
	sectionHeader = regexp.MustCompile(`\[[^\]\n]*\]`)
	// "(x2)", "x3", "(2x)" repeat markers
	repeatMark = regexp.MustCompile(`\(\s*x\s*\d+\s*\)|\(\s*\d+\s*x\s*\)|(?m)\s+x\d+\s*$`)
	// Genius appends "Embed" (sometimes prefixed by a share count) to the last line.
	embedSuffix = regexp.MustCompile(`\d*\s*embed\s*$`)
	// Genius inserts a recommendation block in the middle of long pages.
	mightAlsoLike = regexp.MustCompile(`you might also like`)
)

// Normalize prepares raw provider lyrics for storage and classification:
// the text is lowercased, the page header and trailing embed marker are
// removed, section and repeat markup is dropped and runs of blank lines are
// collapsed into one.
func Normalize(raw string) string {
	text := strings.ToLower(strings.ReplaceAll(raw, "\r\n", "\n"))

	lines := strings.Split(text, "\n")
	if len(lines) > 0 && isPageHeader(lines[0]) {
		lines = lines[1:]
	}
	text = strings.Join(lines, "\n")

	text = embedSuffix.ReplaceAllString(strings.TrimSpace(text), "")
	text = mightAlsoLike.ReplaceAllString(text, "\n")
	text = sectionHeader.ReplaceAllString(text, "\n")
	text = repeatMark.ReplaceAllString(text, "")

	var (
		out   []string
		blank bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// isPageHeader matches the first line of a scraped Genius page, e.g.
// "123 contributorstranslationsmockingbird lyrics".
func isPageHeader(line string) bool {
	line = strings.TrimSpace(line)
	return strings.Contains(line, "contributor") && strings.Contains(line, "lyrics")
}
