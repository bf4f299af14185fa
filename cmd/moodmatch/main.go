// Command moodmatch classifies song lyrics by mood and recommends lyrically
// similar songs of the same mood.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/justestif/moodmatch/internal/search"
)

// version is set via ldflags at build time
var version = "dev"

// exitNotFound is the exit status when the lyrics provider has no match.
const exitNotFound = 2

func main() {
	ctx := context.Background()

	rootCmd := NewRootCmd(version)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		if errors.Is(err, search.ErrNotFound) {
			os.Exit(exitNotFound)
		}
		os.Exit(1)
	}
}
