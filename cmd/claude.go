package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

const claudeConfigFile = "claude_desktop_config.json"

var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Register the viraldna MCP server with Claude Desktop",
	Long: `Add (or replace) the viraldna entry in Claude Desktop's claude_desktop_config.json.

The entry runs this binary with "mcp" and pins the XDG base directories so the
server reads the same config.toml and prompts as the CLI. GEMINI_API_KEY and
APIFY_API_KEY are copied into the entry only when set in the environment; keys
kept in config.toml are picked up by the server on its own.

Other MCP servers and unrelated settings in the file are left untouched.`,
	Example: `  # Register with the detected Claude Desktop config
  viraldna mcp setup-claude

  # Preview the resulting file without writing it
  viraldna mcp setup-claude --dry-run

  # Use a non-standard config location and entry name
  viraldna mcp setup-claude --config ./claude_desktop_config.json --name viraldna-dev`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		name, _ := cmd.Flags().GetString("name")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if configPath == "" {
			var err error
			configPath, err = claudeConfigPath(runtime.GOOS, os.UserHomeDir, os.Getenv)
			if err != nil {
				return err
			}
		}

		execPath, err := resolveExecutable()
		if err != nil {
			return err
		}

		entry, warnings := claudeServerEntry(execPath, os.Getenv, config)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}

		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("claude desktop config not found at %s (start Claude Desktop once or pass --config)", configPath)
			}
			return fmt.Errorf("reading %s: %w", configPath, err)
		}

		updated, err := mergeClaudeConfig(data, name, entry)
		if err != nil {
			return fmt.Errorf("%s: %w", configPath, err)
		}

		if dryRun {
			fmt.Println(string(updated))
			return nil
		}

		if err := writeFileAtomic(configPath, updated); err != nil {
			return err
		}

		fmt.Printf("Registered %q in %s\n", name, configPath)
		fmt.Println("Restart Claude Desktop to load the viraldna MCP server")
		return nil
	},
}

// claudeServer is one entry under mcpServers
type claudeServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// claudeConfigPath returns where Claude Desktop keeps its config on goos
func claudeConfigPath(goos string, home func() (string, error), getenv func(string) string) (string, error) {
	switch goos {
	case "darwin":
		dir, err := home()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		return filepath.Join(dir, "Library", "Application Support", "Claude", claudeConfigFile), nil
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA is not set")
		}
		return filepath.Join(appData, "Claude", claudeConfigFile), nil
	case "linux":
		if dir := getenv("XDG_CONFIG_HOME"); dir != "" {
			return filepath.Join(dir, "Claude", claudeConfigFile), nil
		}
		dir, err := home()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		return filepath.Join(dir, ".config", "Claude", claudeConfigFile), nil
	default:
		return "", fmt.Errorf("claude desktop is not available on %s; pass --config", goos)
	}
}

func resolveExecutable() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating viraldna binary: %w", err)
	}
	path, err = filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolving viraldna binary: %w", err)
	}
	return path, checkExecutable(path)
}

// checkExecutable rejects paths Claude Desktop could not launch, such as go run build caches
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("viraldna binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("viraldna binary %s is not a regular file", path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("viraldna binary %s is not executable", path)
	}
	if dir := filepath.Dir(path); dir == filepath.Clean(os.TempDir()) || filepath.Base(dir) == "exe" {
		return fmt.Errorf("viraldna binary %s looks temporary; install it first (go install or a release build)", path)
	}
	return nil
}

// claudeServerEntry builds the mcpServers entry. Warnings name the credentials
// the server will not be able to resolve once launched by Claude Desktop.
func claudeServerEntry(execPath string, getenv func(string) string, cfg *internal.Config) (claudeServer, []string) {
	env := map[string]string{
		"XDG_DATA_HOME":   xdg.DataHome,
		"XDG_CONFIG_HOME": xdg.ConfigHome,
		"XDG_CACHE_HOME":  xdg.CacheHome,
	}

	var warnings []string
	keys := []struct {
		name     string
		fromFile string
		needed   string
	}{
		{name: "APIFY_API_KEY", needed: "transcript extraction"},
		{name: "GEMINI_API_KEY", needed: "Viral DNA and script generation"},
	}
	if cfg != nil {
		keys[0].fromFile = cfg.ApifyAPIKey
		keys[1].fromFile = cfg.GeminiAPIKey
	}
	for _, k := range keys {
		if v := getenv(k.name); v != "" {
			env[k.name] = v
			continue
		}
		if k.fromFile == "" {
			warnings = append(warnings, fmt.Sprintf("%s is not set; %s will fail until it is added to config.toml", k.name, k.needed))
		}
	}

	return claudeServer{Command: execPath, Args: []string{"mcp"}, Env: env}, warnings
}

// mergeClaudeConfig sets mcpServers[name] and keeps every other key of the
// document, including other servers, as it was.
func mergeClaudeConfig(data []byte, name string, entry claudeServer) ([]byte, error) {
	if name == "" {
		return nil, errors.New("server name is empty")
	}

	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		if doc == nil {
			doc = map[string]json.RawMessage{}
		}
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("mcpServers is not an object: %w", err)
		}
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	servers[name] = encoded

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// writeFileAtomic replaces path via a sibling temp file, keeping the original mode
func writeFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func init() {
	setupClaudeCmd.Flags().String("config", "", "Path to claude_desktop_config.json (default: platform location)")
	setupClaudeCmd.Flags().String("name", internal.AppName, "Name of the mcpServers entry")
	setupClaudeCmd.Flags().Bool("dry-run", false, "Print the updated config instead of writing it")
	mcpCmd.AddCommand(setupClaudeCmd)
}
