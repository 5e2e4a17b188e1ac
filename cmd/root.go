package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

var (
	config *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "viraldna",
	Short: "Reverse-engineer a YouTube creator's viral style",
	Long: `viraldna lists a channel's most popular videos, pulls their transcripts
through an Apify actor and builds a text corpus from them.

The corpus is analysed by Gemini into a "Viral DNA" style guide, which can
then be used to write new scripts in the same style.

Run "viraldna serve" for the web backend, or use the subcommands directly.`,
	Example: `  # Start the HTTP/WebSocket backend on port 5002
  viraldna serve

  # Build a corpus from the 10 most viewed videos of a channel
  viraldna extract @veritasium --limit 10

  # Analyse the corpus and write a script
  viraldna analyze -o dna.md
  viraldna script --dna dna.md --topic "Why the sky is blue"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleVerboseFlag(cmd, config); err != nil {
			return err
		}
		return internal.HandleQuietFlag(cmd, config)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Create a cancellable context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize configuration with Viper
	config = internal.InitConfig()

	// Ensure XDG directories exist
	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		os.Exit(1)
	}

	// Ensure default config exists in XDG config directory
	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	// Ensure default prompts exist in XDG config directory
	if err := internal.EnsureDefaultPrompts(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompts: %v\n", err)
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Shutting down...")

		// Cancel the main context to signal all operations to stop
		cancel()

		// A second signal forces exit
		<-sigCh
		fmt.Fprintln(os.Stderr, "Forced exit")
		os.Exit(1)
	}()

	// Set context on root command
	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
}
