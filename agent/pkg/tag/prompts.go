package tag

import (
	"fmt"
	"strings"

	"github.com/stridelake/stridelake/agent/pkg/tag/prompts"
)

// Prompts contains the TAG prompts loaded from embedded files.
type Prompts struct {
	Generate         string // Full-schema generation prompt, first attempt
	GenerateFollowUp string // Condensed generation prompt, later attempts
	Synthesize       string
}

// LoadPrompts loads all prompts from the embedded filesystem.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Generate, err = loadPrompt("GENERATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load GENERATE: %w", err)
	}
	if p.GenerateFollowUp, err = loadPrompt("GENERATE_FOLLOWUP.md"); err != nil {
		return nil, fmt.Errorf("failed to load GENERATE_FOLLOWUP: %w", err)
	}
	if p.Synthesize, err = loadPrompt("SYNTHESIZE.md"); err != nil {
		return nil, fmt.Errorf("failed to load SYNTHESIZE: %w", err)
	}

	return p, nil
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func buildGeneratePrompt(template, schema, transcript, question string) string {
	return strings.NewReplacer(
		"{{SCHEMA}}", schema,
		"{{CONVERSATION}}", transcript,
		"{{QUESTION}}", question,
	).Replace(template)
}

func buildSynthesizePrompt(template, results string) string {
	return strings.Replace(template, "{{RESULTS}}", results, 1)
}
