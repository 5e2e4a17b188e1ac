package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// listCmd prints a channel's most popular videos
var listCmd = &cobra.Command{
	Use:   "list [channel URL, @handle or channel ID]",
	Short: "List a channel's most popular videos",
	Example: `  # List the 20 most viewed videos as JSON
  viraldna list @veritasium

  # Save the top 50 to a file
  viraldna list @veritasium --limit 50 -o popular.json

  # Format output as pretty JSON
  viraldna list @veritasium --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		app := internal.NewApp(config)
		videos, err := app.ListVideos(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		var jsonData []byte
		pretty, _ := cmd.Flags().GetBool("pretty")
		if pretty {
			jsonData, err = json.MarshalIndent(videos, "", "  ")
		} else {
			jsonData, err = json.Marshal(videos)
		}
		if err != nil {
			return fmt.Errorf("error converting videos to JSON: %w", err)
		}

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			return os.WriteFile(outputFile, jsonData, 0644)
		}

		fmt.Println(string(jsonData))
		return nil
	},
}

func init() {
	internal.AddExtractionFlags(listCmd)
	listCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	listCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	rootCmd.AddCommand(listCmd)
}
