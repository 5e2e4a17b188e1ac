package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// analyzeCmd generates the Viral DNA style guide from a corpus file
var analyzeCmd = &cobra.Command{
	Use:   "analyze [corpus file]",
	Short: "Generate the Viral DNA style guide from a transcript corpus",
	Example: `  # Analyse the corpus written by the last extract
  viraldna analyze

  # Analyse another corpus and save the result
  viraldna analyze corpus/veritasium.txt -o dna.md

  # Read the corpus from stdin
  cat viral_dna.txt | viraldna analyze -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ApplyLLMFlags(cmd, config); err != nil {
			return err
		}
		if err := internal.ValidateGeminiAPIKey(config.GeminiAPIKey); err != nil {
			return err
		}

		path := config.OutputFile
		if len(args) == 1 {
			path = args[0]
		}
		corpus, err := readInput(path)
		if err != nil {
			return err
		}

		app := internal.NewApp(config)
		dna, err := app.Generator().AnalyzeStyle(cmd.Context(), corpus)
		if err != nil {
			return err
		}

		return printGenerated(cmd, dna)
	},
}

func init() {
	internal.AddLLMFlags(analyzeCmd)
	addGeneratedOutputFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}
