package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// scriptCmd writes a script on a topic following a Viral DNA style guide
var scriptCmd = &cobra.Command{
	Use:   "script --dna [file] --topic [text]",
	Short: "Write a script on a topic in the analysed style",
	Example: `  # Write a script from a saved analysis
  viraldna script --dna dna.md --topic "Why the sky is blue"

  # Save it instead of rendering
  viraldna script --dna dna.md --topic "Coffee myths" -o script.md`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ApplyLLMFlags(cmd, config); err != nil {
			return err
		}
		if err := internal.ValidateGeminiAPIKey(config.GeminiAPIKey); err != nil {
			return err
		}

		dnaPath, _ := cmd.Flags().GetString("dna")
		topic, _ := cmd.Flags().GetString("topic")

		dna, err := readInput(dnaPath)
		if err != nil {
			return err
		}

		app := internal.NewApp(config)
		script, err := app.GenerateScript(cmd.Context(), dna, topic)
		if err != nil {
			return err
		}

		return printGenerated(cmd, script)
	},
}

func init() {
	scriptCmd.Flags().String("dna", "", "File containing the Viral DNA analysis (\"-\" for stdin)")
	scriptCmd.Flags().StringP("topic", "t", "", "Video topic")
	_ = scriptCmd.MarkFlagRequired("dna")
	_ = scriptCmd.MarkFlagRequired("topic")
	internal.AddLLMFlags(scriptCmd)
	addGeneratedOutputFlags(scriptCmd)
	rootCmd.AddCommand(scriptCmd)
}
