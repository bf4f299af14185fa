package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justestif/moodmatch/internal/ingest"
)

func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a scraped lyrics dataset",
		Long: `Import a CSV dataset with the header song,artist,lyrics[,mood].
Rows without a mood are classified before they are stored.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	return withApp(cmd, func(a *app) error {
		svc := ingest.NewService(nil, a.store, a, ingest.WithLogger(a.logger.Named("ingest")))

		stats, err := svc.Import(cmd.Context(), f)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return outputJSON(cmd.OutOrStdout(), stats)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d rows (%d classified, %d skipped, %d failed)\n",
			stats.Stored, stats.Rows, stats.Classified, stats.Skipped, stats.Failed)
		return nil
	})
}
