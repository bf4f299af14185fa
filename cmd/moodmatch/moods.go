package main

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/justestif/moodmatch/internal/clustering"
)

func NewMoodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "moods",
		Short: "List stored songs per mood",
		Args:  cobra.NoArgs,
		RunE:  runMoods,
	}
}

func runMoods(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		svc, err := a.service(cmd.Context(), false)
		if err != nil {
			return err
		}

		counts, err := svc.Moods(cmd.Context())
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return outputJSON(cmd.OutOrStdout(), map[string]any{"moods": counts})
		}
		printMoods(cmd.OutOrStdout(), counts)
		return nil
	})
}

// printMoods lists moods by song count, largest first.
func printMoods(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No songs stored")
		return
	}
	moods := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(a, b))
	})
	for _, mood := range moods {
		fmt.Fprintf(w, "%-12s %d\n", mood, counts[mood])
	}
}

func NewThemesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes <mood>",
		Short: "Group the songs of a mood into lyrical themes",
		Args:  cobra.ExactArgs(1),
		RunE:  runThemes,
	}

	cmd.Flags().IntP("themes", "k", 3, "Number of themes")
	return cmd
}

func runThemes(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("themes")

	return withApp(cmd, func(a *app) error {
		svc, err := a.service(cmd.Context(), false)
		if err != nil {
			return err
		}

		result, err := svc.Themes(cmd.Context(), args[0], k)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), clustering.FormatThemeSummary(result.Mood, result.Themes, result.Outliers))
		return nil
	})
}
