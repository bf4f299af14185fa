package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [file|-]",
		Short: "Predict the mood of lyrics",
		Long: `Predict the mood of lyrics read from a file, or from stdin when the file is omitted or "-". Nothing is stored.

With --preprocessed the text the model would see is printed instead and no model is loaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runClassify,
	}
	cmd.Flags().Bool("preprocessed", false, "print the preprocessed lyrics instead of classifying them")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app) error {
		svc, err := a.service(cmd.Context(), false)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if preview, _ := cmd.Flags().GetBool("preprocessed"); preview {
			processed := svc.Preprocess(text)
			if asJSON {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"preprocessed": processed})
			}
			fmt.Fprintln(cmd.OutOrStdout(), processed)
			return nil
		}

		mood, err := svc.Classify(cmd.Context(), text)
		if err != nil {
			return err
		}

		if asJSON {
			return outputJSON(cmd.OutOrStdout(), map[string]string{"mood": mood})
		}
		fmt.Fprintln(cmd.OutOrStdout(), mood)
		return nil
	})
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading lyrics: %w", err)
	}
	return string(data), nil
}
