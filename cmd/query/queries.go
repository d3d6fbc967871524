package main

import (
	"context"

	"github.com/jmoiron/sqlx"

	"sdmeta/internal/database"
)

type FormatCount struct {
	Format string `db:"format"`
	Count  int    `db:"count"`
}

var (
	formatCountsQuery = `
		SELECT format, COUNT(*) AS count
		FROM prompts
		GROUP BY format
		ORDER BY count DESC
	`
	searchPromptsQuery = `
		SELECT file_path, format, prompt, negative_prompt, parameters, fields
		FROM prompts
		WHERE prompt LIKE ? OR parameters LIKE ?
		ORDER BY file_path
		LIMIT ?
	`
)

func FormatCounts(ctx context.Context, db *sqlx.DB) ([]FormatCount, error) {
	var counts []FormatCount
	if err := db.SelectContext(ctx, &counts, formatCountsQuery); err != nil {
		return nil, err
	}
	return counts, nil
}

// SearchPrompts finds records whose prompt or parameters text contains term.
func SearchPrompts(ctx context.Context, db *sqlx.DB, term string, limit int) ([]database.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + term + "%"
	var results []database.Record
	if err := db.SelectContext(ctx, &results, searchPromptsQuery, pattern, pattern, limit); err != nil {
		return nil, err
	}
	return results, nil
}
