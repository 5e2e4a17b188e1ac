package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  viraldna paths`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", config.ConfigDir)
		fmt.Printf("Data directory: %s\n", config.DataDir)
		fmt.Printf("Cache directory: %s\n", config.CacheDir)
		fmt.Printf("Prompt templates: %s, %s\n",
			filepath.Join(config.ConfigDir, "viral_dna_prompt.txt"),
			filepath.Join(config.ConfigDir, "viral_script_prompt.tmpl"))
		fmt.Printf("Corpus file: %s\n", config.OutputFile)
		fmt.Printf("MCP log: %s\n", filepath.Join(config.CacheDir, "mcp.log"))
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
