package config

import (
	"fmt"

	"github.com/menulex/allergo/pkg/allergo/explain"
	"github.com/menulex/allergo/pkg/allergo/lexicon"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	LegendPath string
	SeedPath   string
	EnginePath string
}

// Components holds all loaded configuration components
type Components struct {
	Legend  *Legend
	Labels  []explain.Label
	Lexemes []lexicon.Lexeme
	Cues    []lexicon.Cue
	Engine  *Engine
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load legend
	if l.LegendPath != "" {
		legend, err := LoadLegend(l.LegendPath)
		if err != nil {
			return nil, fmt.Errorf("load legend: %w", err)
		}
		comp.Legend = legend
		comp.Labels = make([]explain.Label, len(legend.Allergens))
		for i, a := range legend.Allergens {
			comp.Labels[i] = explain.Label{
				Code:    a.Code,
				LabelDE: a.LabelDE,
				LabelEN: a.LabelEN,
				LabelAR: a.LabelAR,
			}
		}
	} else {
		comp.Legend = &Legend{}
	}

	// Load lexicon seed
	if l.SeedPath != "" {
		lexemes, cues, err := lexicon.LoadSeed(l.SeedPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon seed: %w", err)
		}
		comp.Lexemes = lexemes
		comp.Cues = cues
	}

	// Load engine settings
	if l.EnginePath != "" {
		eng, err := LoadEngine(l.EnginePath)
		if err != nil {
			return nil, fmt.Errorf("load engine config: %w", err)
		}
		comp.Engine = eng
	} else {
		comp.Engine = DefaultEngine()
	}

	return comp, nil
}
