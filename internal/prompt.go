package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	analysisPromptPath = "prompts/viral_dna_prompt.txt"
	scriptPromptPath   = "prompts/viral_script_prompt.tmpl"
)

// ScriptPromptData for template injection
type ScriptPromptData struct {
	ViralDNA string
}

// PromptManager handles loading and processing prompt templates.
// Files in the config directory override the embedded defaults.
type PromptManager struct {
	configDir string
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(configDir string) *PromptManager {
	return &PromptManager{configDir: configDir}
}

// AnalysisInstruction returns the system instruction used to extract the Viral DNA
func (pm *PromptManager) AnalysisInstruction() (string, error) {
	return pm.load(analysisPromptPath)
}

// ScriptInstruction renders the script system instruction with the given analysis
func (pm *PromptManager) ScriptInstruction(viralDNA string) (string, error) {
	content, err := pm.load(scriptPromptPath)
	if err != nil {
		return "", err
	}
	return buildPromptFromTemplate(content, ScriptPromptData{ViralDNA: viralDNA})
}

// load reads the override from the config dir if present, else the embedded default
func (pm *PromptManager) load(name string) (string, error) {
	var content []byte
	var err error

	override := ""
	if pm.configDir != "" {
		override = filepath.Join(pm.configDir, filepath.Base(name))
	}

	if override != "" && FileExists(override) {
		content, err = os.ReadFile(override)
		if err != nil {
			return "", fmt.Errorf("reading prompt template: %w", err)
		}
	} else {
		content, err = defaultFS.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("reading embedded prompt template: %w", err)
		}
	}

	return strings.TrimRight(string(content), "\n"), nil
}

// buildPromptFromTemplate builds the prompt from template content
func buildPromptFromTemplate(templateContent string, data any) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}

	return buf.String(), nil
}
