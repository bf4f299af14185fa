package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/justestif/moodmatch/internal/ingest"
)

func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file|->",
		Short: "Scrape and classify a list of songs",
		Long: `Scrape, classify and store every song of a list with one "song;artist"
pair per line. Songs already stored are not scraped again.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().IntP("concurrency", "c", 0, "Concurrent scrapes (overrides ingest.concurrency)")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening song list: %w", err)
		}
		defer f.Close()
		in = f
	}

	refs, err := ingest.ParseRefs(in)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app) error {
		searcher, err := a.service(cmd.Context(), true)
		if err != nil {
			return err
		}

		concurrency := a.cfg.Ingest.Concurrency
		if flag, _ := cmd.Flags().GetInt("concurrency"); flag > 0 {
			concurrency = flag
		}
		svc := ingest.NewService(searcher, a.store, a,
			ingest.WithConcurrency(concurrency),
			ingest.WithLogger(a.logger.Named("ingest")),
		)

		outcomes, err := svc.Ingest(cmd.Context(), refs)
		printOutcomes(cmd.OutOrStdout(), outcomes)
		return err
	})
}

func printOutcomes(w io.Writer, outcomes []ingest.Outcome) {
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s - %s: %v\n", o.Ref.Song, o.Ref.Artist, o.Err)
			continue
		}
		fmt.Fprintf(w, "ok    %s - %s: %s (%s)\n", o.Song, o.Artist, o.Mood, o.Source)
	}
	fmt.Fprintf(w, "\n%d songs, %d failed\n", len(outcomes), failed)
}
