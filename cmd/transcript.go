package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// transcriptCmd fetches one transcript through the Apify actor
var transcriptCmd = &cobra.Command{
	Use:   "transcript [YouTube URL or ID]",
	Short: "Fetch the transcript of a single video through Apify",
	Example: `  # Print a transcript
  viraldna transcript "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  viraldna transcript tAP1eZYEuKA

  # Save transcript to file
  viraldna transcript tAP1eZYEuKA -o transcript.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateApifyAPIKey(config.ApifyAPIKey); err != nil {
			return err
		}

		app := internal.NewApp(config)
		transcript, err := app.Transcript(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return writeOutput(cmd, transcript)
	},
}

func init() {
	transcriptCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(transcriptCmd)
}

// writeOutput saves content to --output when set, else prints it
func writeOutput(cmd *cobra.Command, content string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile != "" {
		return internal.WriteOutputFile(outputFile, content)
	}
	fmt.Println(content)
	return nil
}
