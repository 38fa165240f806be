// Package sqlite implements store.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/menulex/allergo/pkg/allergo/store"
	"github.com/menulex/allergo/pkg/allergo/suggest"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and initializes the
// schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS allergens (
	code TEXT PRIMARY KEY,
	label_de TEXT,
	label_en TEXT,
	label_ar TEXT
);

CREATE TABLE IF NOT EXISTS additives (
	number INTEGER PRIMARY KEY,
	label_de TEXT,
	label_en TEXT,
	label_ar TEXT
);

CREATE TABLE IF NOT EXISTS ingredients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	allergens TEXT,
	additives TEXT,
	synonyms TEXT,
	UNIQUE(owner, name)
);

CREATE TABLE IF NOT EXISTS keyword_lexemes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	lang TEXT NOT NULL,
	term TEXT NOT NULL,
	is_regex INTEGER NOT NULL DEFAULT 0,
	weight REAL NOT NULL DEFAULT 1,
	is_active INTEGER NOT NULL DEFAULT 1,
	ingredient_id INTEGER,
	allergens TEXT,
	notes TEXT,
	created_at TEXT,
	updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_lexemes_owner_lang ON keyword_lexemes(owner, lang);

CREATE TABLE IF NOT EXISTS negation_cues (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	lang TEXT NOT NULL,
	cue TEXT NOT NULL,
	is_regex INTEGER NOT NULL DEFAULT 0,
	window_before INTEGER NOT NULL DEFAULT 0,
	window_after INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	notes TEXT,
	created_at TEXT,
	updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_cues_owner_lang ON negation_cues(owner, lang);

CREATE TABLE IF NOT EXISTS dishes (
	id INTEGER PRIMARY KEY,
	owner TEXT NOT NULL,
	lang TEXT NOT NULL,
	name TEXT,
	description TEXT,
	ingredient_ids TEXT,
	generated_codes TEXT,
	has_manual_codes INTEGER NOT NULL DEFAULT 0,
	manual_codes TEXT,
	extra_allergens TEXT,
	extra_additives TEXT,
	display_codes TEXT
);
CREATE INDEX IF NOT EXISTS idx_dishes_owner ON dishes(owner);

CREATE TABLE IF NOT EXISTS dish_allergens (
	dish_id INTEGER NOT NULL,
	code TEXT NOT NULL,
	source TEXT NOT NULL,
	confidence REAL,
	rationale TEXT,
	is_confirmed INTEGER NOT NULL DEFAULT 0,
	created_by TEXT,
	created_at TEXT,
	PRIMARY KEY(dish_id, code, source)
);

CREATE TABLE IF NOT EXISTS ingredient_suggestions (
	id TEXT PRIMARY KEY,
	dish_id INTEGER NOT NULL,
	lang TEXT NOT NULL,
	text_snapshot TEXT,
	candidates TEXT,
	model_name TEXT,
	prompt_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	notes TEXT,
	reviewed_by TEXT,
	reviewed_at TEXT,
	applied_at TEXT,
	created_at TEXT,
	updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_suggestions_hash ON ingredient_suggestions(prompt_hash, status);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertAllergen inserts or updates one allergen legend entry.
func (s *sqliteStore) UpsertAllergen(ctx context.Context, a store.Allergen) error {
	const stmt = `
INSERT INTO allergens (code, label_de, label_en, label_ar)
VALUES (?, ?, ?, ?)
ON CONFLICT(code) DO UPDATE SET
	label_de=excluded.label_de,
	label_en=excluded.label_en,
	label_ar=excluded.label_ar
`
	_, err := s.db.ExecContext(ctx, stmt, a.Code, a.LabelDE, a.LabelEN, a.LabelAR)
	return err
}

// ListAllergens returns the allergen legend ordered by code.
func (s *sqliteStore) ListAllergens(ctx context.Context) ([]store.Allergen, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, label_de, label_en, label_ar FROM allergens ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Allergen
	for rows.Next() {
		var a store.Allergen
		if err := rows.Scan(&a.Code, &a.LabelDE, &a.LabelEN, &a.LabelAR); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertAdditive inserts or updates one additive legend entry.
func (s *sqliteStore) UpsertAdditive(ctx context.Context, a store.Additive) error {
	const stmt = `
INSERT INTO additives (number, label_de, label_en, label_ar)
VALUES (?, ?, ?, ?)
ON CONFLICT(number) DO UPDATE SET
	label_de=excluded.label_de,
	label_en=excluded.label_en,
	label_ar=excluded.label_ar
`
	_, err := s.db.ExecContext(ctx, stmt, a.Number, a.LabelDE, a.LabelEN, a.LabelAR)
	return err
}

// ListAdditives returns the additive legend ordered by number.
func (s *sqliteStore) ListAdditives(ctx context.Context) ([]store.Additive, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT number, label_de, label_en, label_ar FROM additives ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Additive
	for rows.Next() {
		var a store.Additive
		if err := rows.Scan(&a.Number, &a.LabelDE, &a.LabelEN, &a.LabelAR); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertIngredient inserts or updates an ingredient, keyed by (owner, name)
// when ID is unset.
func (s *sqliteStore) UpsertIngredient(ctx context.Context, ing store.Ingredient) (int64, error) {
	allergens := marshalJSON(ing.Allergens)
	additives := marshalJSON(ing.Additives)
	synonyms := marshalJSON(ing.Synonyms)

	if ing.ID != 0 {
		const stmt = `
INSERT INTO ingredients (id, owner, name, allergens, additives, synonyms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner=excluded.owner,
	name=excluded.name,
	allergens=excluded.allergens,
	additives=excluded.additives,
	synonyms=excluded.synonyms
`
		_, err := s.db.ExecContext(ctx, stmt, ing.ID, ing.Owner, ing.Name, allergens, additives, synonyms)
		return ing.ID, err
	}

	const stmt = `
INSERT INTO ingredients (owner, name, allergens, additives, synonyms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(owner, name) DO UPDATE SET
	allergens=excluded.allergens,
	additives=excluded.additives,
	synonyms=excluded.synonyms
RETURNING id
`
	var id int64
	err := s.db.QueryRowContext(ctx, stmt, ing.Owner, ing.Name, allergens, additives, synonyms).Scan(&id)
	return id, err
}

// GetIngredient returns an ingredient by ID.
func (s *sqliteStore) GetIngredient(ctx context.Context, id int64) (store.Ingredient, bool, error) {
	const stmt = `SELECT id, owner, name, allergens, additives, synonyms FROM ingredients WHERE id=?`
	var ing store.Ingredient
	var allergens, additives, synonyms sql.NullString
	err := s.db.QueryRowContext(ctx, stmt, id).Scan(&ing.ID, &ing.Owner, &ing.Name, &allergens, &additives, &synonyms)
	if err == sql.ErrNoRows {
		return store.Ingredient{}, false, nil
	}
	if err != nil {
		return store.Ingredient{}, false, err
	}
	unmarshalJSON(allergens, &ing.Allergens)
	unmarshalJSON(additives, &ing.Additives)
	unmarshalJSON(synonyms, &ing.Synonyms)
	return ing, true, nil
}

// ListIngredientsByOwners returns ingredients for the given owners ordered
// by ID.
func (s *sqliteStore) ListIngredientsByOwners(ctx context.Context, owners []string) ([]store.Ingredient, error) {
	if len(owners) == 0 {
		return nil, nil
	}
	stmt := `SELECT id, owner, name, allergens, additives, synonyms FROM ingredients WHERE owner IN (` + placeholders(len(owners)) + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, stmt, stringArgs(owners)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Ingredient
	for rows.Next() {
		var ing store.Ingredient
		var allergens, additives, synonyms sql.NullString
		if err := rows.Scan(&ing.ID, &ing.Owner, &ing.Name, &allergens, &additives, &synonyms); err != nil {
			return nil, err
		}
		unmarshalJSON(allergens, &ing.Allergens)
		unmarshalJSON(additives, &ing.Additives)
		unmarshalJSON(synonyms, &ing.Synonyms)
		out = append(out, ing)
	}
	return out, rows.Err()
}

// InsertLexeme appends a new lexeme; row IDs preserve insertion order.
func (s *sqliteStore) InsertLexeme(ctx context.Context, lex store.KeywordLexeme) (int64, error) {
	now := time.Now().UTC()
	if lex.CreatedAt.IsZero() {
		lex.CreatedAt = now
	}
	const stmt = `
INSERT INTO keyword_lexemes (owner, lang, term, is_regex, weight, is_active, ingredient_id, allergens, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`
	var id int64
	err := s.db.QueryRowContext(ctx, stmt,
		lex.Owner, lex.Lang, lex.Term, boolInt(lex.IsRegex), lex.Weight, boolInt(lex.IsActive),
		lex.IngredientID, marshalJSON(lex.Allergens), lex.Notes,
		formatTime(lex.CreatedAt), formatTime(now),
	).Scan(&id)
	return id, err
}

// UpdateLexeme rewrites an existing lexeme (e.g. soft-disable).
func (s *sqliteStore) UpdateLexeme(ctx context.Context, lex store.KeywordLexeme) error {
	const stmt = `
UPDATE keyword_lexemes
SET owner=?, lang=?, term=?, is_regex=?, weight=?, is_active=?, ingredient_id=?, allergens=?, notes=?, updated_at=?
WHERE id=?
`
	_, err := s.db.ExecContext(ctx, stmt,
		lex.Owner, lex.Lang, lex.Term, boolInt(lex.IsRegex), lex.Weight, boolInt(lex.IsActive),
		lex.IngredientID, marshalJSON(lex.Allergens), lex.Notes, formatTime(time.Now().UTC()),
		lex.ID,
	)
	return err
}

// ListLexemes returns lexemes for the given owners and language in
// insertion order.
func (s *sqliteStore) ListLexemes(ctx context.Context, owners []string, lang string) ([]store.KeywordLexeme, error) {
	if len(owners) == 0 {
		return nil, nil
	}
	stmt := `
SELECT id, owner, lang, term, is_regex, weight, is_active, ingredient_id, allergens, notes, created_at, updated_at
FROM keyword_lexemes
WHERE lang=? AND owner IN (` + placeholders(len(owners)) + `)
ORDER BY id`
	args := append([]interface{}{lang}, stringArgs(owners)...)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.KeywordLexeme
	for rows.Next() {
		var lex store.KeywordLexeme
		var isRegex, isActive int
		var ingredientID sql.NullInt64
		var allergens, notes, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&lex.ID, &lex.Owner, &lex.Lang, &lex.Term, &isRegex, &lex.Weight, &isActive,
			&ingredientID, &allergens, &notes, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		lex.IsRegex = isRegex != 0
		lex.IsActive = isActive != 0
		lex.IngredientID = ingredientID.Int64
		unmarshalJSON(allergens, &lex.Allergens)
		lex.Notes = notes.String
		lex.CreatedAt = parseTime(createdAt)
		lex.UpdatedAt = parseTime(updatedAt)
		out = append(out, lex)
	}
	return out, rows.Err()
}

// InsertCue appends a new negation cue.
func (s *sqliteStore) InsertCue(ctx context.Context, cue store.NegationCue) (int64, error) {
	now := time.Now().UTC()
	if cue.CreatedAt.IsZero() {
		cue.CreatedAt = now
	}
	const stmt = `
INSERT INTO negation_cues (owner, lang, cue, is_regex, window_before, window_after, is_active, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`
	var id int64
	err := s.db.QueryRowContext(ctx, stmt,
		cue.Owner, cue.Lang, cue.Cue, boolInt(cue.IsRegex), cue.WindowBefore, cue.WindowAfter,
		boolInt(cue.IsActive), cue.Notes, formatTime(cue.CreatedAt), formatTime(now),
	).Scan(&id)
	return id, err
}

// ListCues returns cues for the given owners and language in insertion
// order.
func (s *sqliteStore) ListCues(ctx context.Context, owners []string, lang string) ([]store.NegationCue, error) {
	if len(owners) == 0 {
		return nil, nil
	}
	stmt := `
SELECT id, owner, lang, cue, is_regex, window_before, window_after, is_active, notes, created_at, updated_at
FROM negation_cues
WHERE lang=? AND owner IN (` + placeholders(len(owners)) + `)
ORDER BY id`
	args := append([]interface{}{lang}, stringArgs(owners)...)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.NegationCue
	for rows.Next() {
		var cue store.NegationCue
		var isRegex, isActive int
		var notes, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&cue.ID, &cue.Owner, &cue.Lang, &cue.Cue, &isRegex, &cue.WindowBefore,
			&cue.WindowAfter, &isActive, &notes, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		cue.IsRegex = isRegex != 0
		cue.IsActive = isActive != 0
		cue.Notes = notes.String
		cue.CreatedAt = parseTime(createdAt)
		cue.UpdatedAt = parseTime(updatedAt)
		out = append(out, cue)
	}
	return out, rows.Err()
}

// UpsertDish inserts or updates a dish keyed by ID.
func (s *sqliteStore) UpsertDish(ctx context.Context, d store.Dish) error {
	const stmt = `
INSERT INTO dishes (id, owner, lang, name, description, ingredient_ids, generated_codes, has_manual_codes, manual_codes, extra_allergens, extra_additives, display_codes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner=excluded.owner,
	lang=excluded.lang,
	name=excluded.name,
	description=excluded.description,
	ingredient_ids=excluded.ingredient_ids,
	generated_codes=excluded.generated_codes,
	has_manual_codes=excluded.has_manual_codes,
	manual_codes=excluded.manual_codes,
	extra_allergens=excluded.extra_allergens,
	extra_additives=excluded.extra_additives,
	display_codes=excluded.display_codes
`
	_, err := s.db.ExecContext(ctx, stmt,
		d.ID, d.Owner, d.Lang, d.Name, d.Description, marshalJSON(d.IngredientIDs),
		d.GeneratedCodes, boolInt(d.HasManualCodes), d.ManualCodes,
		marshalJSON(d.ExtraAllergens), marshalJSON(d.ExtraAdditives), d.DisplayCodes,
	)
	return err
}

// GetDish returns a dish by ID.
func (s *sqliteStore) GetDish(ctx context.Context, id int64) (store.Dish, bool, error) {
	const stmt = `
SELECT id, owner, lang, name, description, ingredient_ids, generated_codes, has_manual_codes, manual_codes, extra_allergens, extra_additives, display_codes
FROM dishes WHERE id=?`
	d, err := scanDish(s.db.QueryRowContext(ctx, stmt, id))
	if err == sql.ErrNoRows {
		return store.Dish{}, false, nil
	}
	if err != nil {
		return store.Dish{}, false, err
	}
	return d, true, nil
}

// ListDishesByOwner returns an owner's dishes ordered by ID.
func (s *sqliteStore) ListDishesByOwner(ctx context.Context, owner string) ([]store.Dish, error) {
	const stmt = `
SELECT id, owner, lang, name, description, ingredient_ids, generated_codes, has_manual_codes, manual_codes, extra_allergens, extra_additives, display_codes
FROM dishes WHERE owner=? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, stmt, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDish(row rowScanner) (store.Dish, error) {
	var d store.Dish
	var hasManual int
	var name, description, ingredientIDs, generated, manual, extraAllergens, extraAdditives, display sql.NullString
	err := row.Scan(&d.ID, &d.Owner, &d.Lang, &name, &description, &ingredientIDs,
		&generated, &hasManual, &manual, &extraAllergens, &extraAdditives, &display)
	if err != nil {
		return store.Dish{}, err
	}
	d.Name = name.String
	d.Description = description.String
	unmarshalJSON(ingredientIDs, &d.IngredientIDs)
	d.GeneratedCodes = generated.String
	d.HasManualCodes = hasManual != 0
	d.ManualCodes = manual.String
	unmarshalJSON(extraAllergens, &d.ExtraAllergens)
	unmarshalJSON(extraAdditives, &d.ExtraAdditives)
	d.DisplayCodes = display.String
	return d, nil
}

// UpsertDishAllergen upserts one audit row by (dish, code, source). The
// original creation metadata and confirmation flag survive re-derivation.
func (s *sqliteStore) UpsertDishAllergen(ctx context.Context, row store.DishAllergen) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	const stmt = `
INSERT INTO dish_allergens (dish_id, code, source, confidence, rationale, is_confirmed, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(dish_id, code, source) DO UPDATE SET
	confidence=excluded.confidence,
	rationale=excluded.rationale
`
	_, err := s.db.ExecContext(ctx, stmt,
		row.DishID, row.Code, row.Source, row.Confidence, row.Rationale,
		boolInt(row.IsConfirmed), row.CreatedBy, formatTime(row.CreatedAt),
	)
	return err
}

// ListDishAllergens returns a dish's audit rows ordered by code then
// source.
func (s *sqliteStore) ListDishAllergens(ctx context.Context, dishID int64) ([]store.DishAllergen, error) {
	return s.listAudit(ctx, dishID, "")
}

// ListDishAllergensBySource filters audit rows by attribution tier.
func (s *sqliteStore) ListDishAllergensBySource(ctx context.Context, dishID int64, source string) ([]store.DishAllergen, error) {
	return s.listAudit(ctx, dishID, source)
}

func (s *sqliteStore) listAudit(ctx context.Context, dishID int64, source string) ([]store.DishAllergen, error) {
	stmt := `
SELECT dish_id, code, source, confidence, rationale, is_confirmed, created_by, created_at
FROM dish_allergens WHERE dish_id=?`
	args := []interface{}{dishID}
	if source != "" {
		stmt += ` AND source=?`
		args = append(args, source)
	}
	stmt += ` ORDER BY code, source`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.DishAllergen
	for rows.Next() {
		var row store.DishAllergen
		var isConfirmed int
		var confidence sql.NullFloat64
		var rationale, createdBy, createdAt sql.NullString
		if err := rows.Scan(&row.DishID, &row.Code, &row.Source, &confidence, &rationale,
			&isConfirmed, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		row.Confidence = confidence.Float64
		row.Rationale = rationale.String
		row.IsConfirmed = isConfirmed != 0
		row.CreatedBy = createdBy.String
		row.CreatedAt = parseTime(createdAt)
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpsertSuggestion stores a suggestion keyed by ID.
func (s *sqliteStore) UpsertSuggestion(ctx context.Context, sg suggest.Suggestion) error {
	const stmt = `
INSERT INTO ingredient_suggestions (id, dish_id, lang, text_snapshot, candidates, model_name, prompt_hash, status, notes, reviewed_by, reviewed_at, applied_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	candidates=excluded.candidates,
	status=excluded.status,
	notes=excluded.notes,
	reviewed_by=excluded.reviewed_by,
	reviewed_at=excluded.reviewed_at,
	applied_at=excluded.applied_at,
	updated_at=excluded.updated_at
`
	_, err := s.db.ExecContext(ctx, stmt,
		sg.ID, sg.DishID, sg.Lang, sg.TextSnapshot, marshalJSON(sg.Candidates),
		sg.ModelName, sg.PromptHash, string(sg.Status), sg.Notes,
		sg.ReviewedBy, formatTime(sg.ReviewedAt), formatTime(sg.AppliedAt),
		formatTime(sg.CreatedAt), formatTime(sg.UpdatedAt),
	)
	return err
}

// GetSuggestion returns a suggestion by ID.
func (s *sqliteStore) GetSuggestion(ctx context.Context, id string) (suggest.Suggestion, bool, error) {
	const stmt = suggestionSelect + ` WHERE id=?`
	sg, err := scanSuggestion(s.db.QueryRowContext(ctx, stmt, id))
	if err == sql.ErrNoRows {
		return suggest.Suggestion{}, false, nil
	}
	if err != nil {
		return suggest.Suggestion{}, false, err
	}
	return sg, true, nil
}

// PendingSuggestionByHash returns the pending suggestion with the given
// prompt hash, if any.
func (s *sqliteStore) PendingSuggestionByHash(ctx context.Context, hash string) (suggest.Suggestion, bool, error) {
	const stmt = suggestionSelect + ` WHERE prompt_hash=? AND status=? LIMIT 1`
	sg, err := scanSuggestion(s.db.QueryRowContext(ctx, stmt, hash, string(suggest.StatusPending)))
	if err == sql.ErrNoRows {
		return suggest.Suggestion{}, false, nil
	}
	if err != nil {
		return suggest.Suggestion{}, false, err
	}
	return sg, true, nil
}

// ListSuggestionsByDish returns a dish's suggestions ordered by creation
// time.
func (s *sqliteStore) ListSuggestionsByDish(ctx context.Context, dishID int64) ([]suggest.Suggestion, error) {
	const stmt = suggestionSelect + ` WHERE dish_id=? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, stmt, dishID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []suggest.Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

const suggestionSelect = `
SELECT id, dish_id, lang, text_snapshot, candidates, model_name, prompt_hash, status, notes, reviewed_by, reviewed_at, applied_at, created_at, updated_at
FROM ingredient_suggestions`

func scanSuggestion(row rowScanner) (suggest.Suggestion, error) {
	var sg suggest.Suggestion
	var status string
	var snapshot, candidates, model, notes, reviewedBy, reviewedAt, appliedAt, createdAt, updatedAt sql.NullString
	err := row.Scan(&sg.ID, &sg.DishID, &sg.Lang, &snapshot, &candidates, &model, &sg.PromptHash,
		&status, &notes, &reviewedBy, &reviewedAt, &appliedAt, &createdAt, &updatedAt)
	if err != nil {
		return suggest.Suggestion{}, err
	}
	sg.TextSnapshot = snapshot.String
	unmarshalJSON(candidates, &sg.Candidates)
	sg.ModelName = model.String
	sg.Status = suggest.Status(status)
	sg.Notes = notes.String
	sg.ReviewedBy = reviewedBy.String
	sg.ReviewedAt = parseTime(reviewedAt)
	sg.AppliedAt = parseTime(appliedAt)
	sg.CreatedAt = parseTime(createdAt)
	sg.UpdatedAt = parseTime(updatedAt)
	return sg, nil
}

func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func unmarshalJSON[T any](src sql.NullString, dst *T) {
	if !src.Valid || src.String == "" {
		return
	}
	// malformed stored JSON degrades to the zero value
	_ = json.Unmarshal([]byte(src.String), dst)
}

func placeholders(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}

func stringArgs(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
