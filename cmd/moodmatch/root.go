package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "moodmatch",
		Short: "Lyrics mood classification and similar song search",
		Long: `moodmatch scrapes song lyrics, predicts their mood with a trained model
and recommends the stored songs of that mood with the most similar lyrics.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	rootCmd.AddCommand(
		NewServeCmd(),
		NewSearchCmd(),
		NewClassifyCmd(),
		NewImportCmd(),
		NewIngestCmd(),
		NewMoodsCmd(),
		NewThemesCmd(),
	)

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Config file (yaml, toml or json)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}
