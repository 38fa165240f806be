package main

import (
	"context"
	"flag"
	"log"

	"github.com/menulex/allergo/pkg/allergo/config"
	"github.com/menulex/allergo/pkg/allergo/store"
	"github.com/menulex/allergo/pkg/allergo/store/sqlite"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "Database path (required)")
		legendPath = flag.String("legend", "", "Allergen/additive legend YAML (optional)")
		seedPath   = flag.String("seed", "", "Lexicon seed YAML (optional)")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if *legendPath == "" && *seedPath == "" {
		log.Fatal("nothing to import: pass --legend and/or --seed")
	}

	ctx := context.Background()

	loader := config.Loader{
		LegendPath: *legendPath,
		SeedPath:   *seedPath,
	}
	components, err := loader.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer st.Close()

	for _, a := range components.Legend.Allergens {
		rec := store.Allergen{Code: a.Code, LabelDE: a.LabelDE, LabelEN: a.LabelEN, LabelAR: a.LabelAR}
		if err := st.UpsertAllergen(ctx, rec); err != nil {
			log.Fatalf("Failed to import allergen %s: %v", a.Code, err)
		}
	}
	for _, a := range components.Legend.Additives {
		rec := store.Additive{Number: a.Number, LabelDE: a.LabelDE, LabelEN: a.LabelEN, LabelAR: a.LabelAR}
		if err := st.UpsertAdditive(ctx, rec); err != nil {
			log.Fatalf("Failed to import additive %d: %v", a.Number, err)
		}
	}
	if len(components.Legend.Allergens)+len(components.Legend.Additives) > 0 {
		log.Printf("Imported %d allergens, %d additives",
			len(components.Legend.Allergens), len(components.Legend.Additives))
	}

	for _, lex := range components.Lexemes {
		if _, err := st.InsertLexeme(ctx, store.KeywordLexeme(lex)); err != nil {
			log.Fatalf("Failed to import lexeme %q: %v", lex.Term, err)
		}
	}
	for _, cue := range components.Cues {
		if _, err := st.InsertCue(ctx, store.NegationCue(cue)); err != nil {
			log.Fatalf("Failed to import cue %q: %v", cue.Cue, err)
		}
	}
	if len(components.Lexemes)+len(components.Cues) > 0 {
		log.Printf("Imported %d lexemes, %d negation cues",
			len(components.Lexemes), len(components.Cues))
	}
}
