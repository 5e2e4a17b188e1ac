package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// extractCmd builds the transcript corpus of a channel in the foreground
var extractCmd = &cobra.Command{
	Use:   "extract [channel URL, @handle or channel ID]",
	Short: "Build a transcript corpus from a channel's most popular videos",
	Example: `  # Extract the 20 most viewed videos
  viraldna extract "https://www.youtube.com/@veritasium"
  viraldna extract @veritasium

  # Fewer videos, custom output file
  viraldna extract @veritasium --limit 5 -o corpus/veritasium.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateApifyAPIKey(config.ApifyAPIKey); err != nil {
			return err
		}
		if outputFile, _ := cmd.Flags().GetString("output"); outputFile != "" {
			config.OutputFile = outputFile
		}
		limit, _ := cmd.Flags().GetInt("limit")

		app := internal.NewApp(config)
		result, err := app.Extract(cmd.Context(), args[0], limit, !config.Quiet)
		if err != nil {
			return err
		}

		app.UI().Printf("Saved %d transcripts to %s\n", result.VideosProcessed, result.OutputFile)
		return nil
	},
}

func init() {
	internal.AddExtractionFlags(extractCmd)
	extractCmd.Flags().StringP("output", "o", "", "Corpus file path (default from config)")
	rootCmd.AddCommand(extractCmd)
}
