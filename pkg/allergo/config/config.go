package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Legend represents the allergen and additive legend configuration
type Legend struct {
	Allergens []LegendAllergen `yaml:"allergens"`
	Additives []LegendAdditive `yaml:"additives"`
}

// LegendAllergen is one allergen letter with its per-language labels
type LegendAllergen struct {
	Code    string `yaml:"code"`
	LabelDE string `yaml:"label_de"`
	LabelEN string `yaml:"label_en"`
	LabelAR string `yaml:"label_ar"`
}

// LegendAdditive is one additive number with its per-language labels
type LegendAdditive struct {
	Number  int    `yaml:"number"`
	LabelDE string `yaml:"label_de"`
	LabelEN string `yaml:"label_en"`
	LabelAR string `yaml:"label_ar"`
}

// LoadLegend loads the legend from a YAML file
func LoadLegend(path string) (*Legend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var legend Legend
	if err := yaml.Unmarshal(data, &legend); err != nil {
		return nil, err
	}

	return &legend, nil
}

// Engine represents the derivation engine configuration
type Engine struct {
	SharedOwner       string `yaml:"shared_owner"`
	MinCoverageTokens int    `yaml:"min_coverage_tokens"`
	LLM               LLM    `yaml:"llm"`
}

// LLM holds the suggestion collaborator settings
type LLM struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoadEngine loads the engine configuration from a YAML file. Missing
// fields fall back to defaults.
func LoadEngine(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var eng Engine
	if err := yaml.Unmarshal(data, &eng); err != nil {
		return nil, err
	}

	eng.applyDefaults()
	return &eng, nil
}

// DefaultEngine returns an engine configuration with all defaults applied
func DefaultEngine() *Engine {
	eng := &Engine{}
	eng.applyDefaults()
	return eng
}

func (e *Engine) applyDefaults() {
	if e.SharedOwner == "" {
		e.SharedOwner = "shared"
	}
	if e.MinCoverageTokens == 0 {
		e.MinCoverageTokens = 3
	}
	if e.LLM.TimeoutSeconds == 0 {
		e.LLM.TimeoutSeconds = 30
	}
}
