package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/menulex/allergo/internal/llm"
	"github.com/menulex/allergo/pkg/allergo"
	"github.com/menulex/allergo/pkg/allergo/config"
	"github.com/menulex/allergo/pkg/allergo/explain"
	"github.com/menulex/allergo/pkg/allergo/store/sqlite"
	"github.com/menulex/allergo/pkg/allergo/suggest"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "Database path (required)")
		enginePath = flag.String("config", "", "Engine config YAML (optional)")
		owner      = flag.String("owner", "", "Derive every dish of this owner")
		dishID     = flag.Int64("dish", 0, "Derive a single dish by ID")
		lang       = flag.String("explain", "", "Also print the explanation sentence (de, en or ar)")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if *owner == "" && *dishID == 0 {
		log.Fatal("pass --owner or --dish")
	}

	ctx := context.Background()

	loader := config.Loader{EnginePath: *enginePath}
	components, err := loader.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	cfg := components.Engine

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}

	var collaborator suggest.Collaborator
	if cfg.LLM.BaseURL != "" {
		collaborator = &llm.Client{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
		}
	}

	engine := allergo.New(allergo.Options{
		Store:             st,
		SharedOwner:       cfg.SharedOwner,
		MinCoverageTokens: cfg.MinCoverageTokens,
		Collaborator:      collaborator,
		Model:             cfg.LLM.Model,
		LLMTimeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	defer engine.Close()

	if *dishID != 0 {
		res, err := engine.DeriveDish(ctx, *dishID)
		if err != nil {
			log.Fatalf("Derivation failed for dish %d: %v", *dishID, err)
		}
		printResult(res)
		if *lang != "" {
			sentence, err := engine.Explanation(ctx, *dishID, explain.Lang(*lang))
			if err != nil {
				log.Fatalf("Explanation failed: %v", err)
			}
			fmt.Println(sentence)
		}
		return
	}

	batch, err := engine.DeriveBatch(ctx, *owner)
	if err != nil {
		log.Fatalf("Batch derivation failed for %s: %v", *owner, err)
	}
	for _, res := range batch.Results {
		printResult(res)
	}
	log.Printf("Done: %d processed, %d updated, %d failed",
		batch.Processed, batch.Updated, batch.Failed)
}

func printResult(res allergo.DeriveResult) {
	line := fmt.Sprintf("dish %d: %s", res.DishID, res.DisplayCodes)
	if res.DisplayCodes == "" {
		line = fmt.Sprintf("dish %d: (no codes)", res.DishID)
	}
	if res.LowConfidence {
		line += " [low confidence"
		if res.SuggestionID != "" {
			line += ", suggestion " + res.SuggestionID
		}
		line += "]"
	}
	fmt.Println(line)
	for _, warn := range res.Warnings {
		log.Printf("dish %d: %s", res.DishID, warn)
	}
}
