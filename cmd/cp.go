package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// cpCmd copies the corpus (or any generated file) to the system clipboard.
var cpCmd = &cobra.Command{
	Use:   "cp [file]",
	Short: "Copy the corpus or a generated file to the clipboard",
	Example: `  # Copy the corpus of the last extract
  viraldna cp

  # Copy a saved analysis
  viraldna cp dna.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.OutputFile
		if len(args) == 1 {
			path = args[0]
		}

		content, err := readInput(path)
		if err != nil {
			return err
		}

		if err := clipboard.WriteAll(content); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}

		if !config.Quiet {
			fmt.Printf("Copied %s to clipboard\n", path)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
