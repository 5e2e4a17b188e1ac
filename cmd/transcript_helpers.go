package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// readInput reads a file, or stdin when path is "-"
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// printGenerated saves generated markdown to --output or renders it to the terminal
func printGenerated(cmd *cobra.Command, content string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile != "" {
		return internal.WriteOutputFile(outputFile, content)
	}

	raw, _ := cmd.Flags().GetBool("raw")
	if raw {
		fmt.Println(content)
		return nil
	}

	rendered, err := internal.RenderMarkdown(content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		fmt.Println(content)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

func addGeneratedOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Save the generated markdown to a file (default: render to stdout)")
	cmd.Flags().Bool("raw", false, "Print markdown without terminal rendering")
}
