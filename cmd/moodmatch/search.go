package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/justestif/moodmatch/internal/search"
)

func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <song> <artist>",
		Short: "Classify a song and list similar songs",
		Long: `Look the song up, scraping and classifying its lyrics when it is not
stored yet, and list the stored songs of the same mood with the most similar
lyrics. Exits with status 2 when no lyrics are found.`,
		Args: cobra.ExactArgs(2),
		RunE: runSearch,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(a *app) error {
		svc, err := a.service(cmd.Context(), true)
		if err != nil {
			return err
		}

		result, err := svc.Search(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if asJSON {
			return outputJSON(cmd.OutOrStdout(), result)
		}
		printResult(cmd.OutOrStdout(), result)
		return nil
	})
}

func printResult(w io.Writer, result *search.Result) {
	fmt.Fprintf(w, "%s - %s\n", result.Song, result.Artist)
	fmt.Fprintf(w, "Mood: %s (%s)\n", result.Mood, result.Source)

	if len(result.Similar) == 0 {
		fmt.Fprintln(w, "\nNo similar songs stored yet")
		return
	}

	fmt.Fprintln(w, "\nSimilar songs:")
	for i, m := range result.Similar {
		fmt.Fprintf(w, "  %d. %s - %s (%.2f%%)", i+1, m.Song, m.Artist, m.Similarity)
		if m.SpotifyURL != "" {
			fmt.Fprintf(w, "  %s", m.SpotifyURL)
		}
		fmt.Fprintln(w)
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
