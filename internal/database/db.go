package database

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
)

// Record is one extracted image flattened for storage. Fields holds the
// normalized field map as a JSON string.
type Record struct {
	FilePath       string `db:"file_path"`
	Format         string `db:"format"`
	Prompt         string `db:"prompt"`
	NegativePrompt string `db:"negative_prompt"`
	Parameters     string `db:"parameters"`
	Fields         string `db:"fields"`
}

type Store struct {
	DB *sqlx.DB
}

// Open creates or opens the database at path. A .duckdb extension selects
// DuckDB; anything else is SQLite.
func Open(path string) (*Store, error) {
	var db *sqlx.DB
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".duckdb":
		db, err = sqlx.Open("duckdb", path)
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", path)
		db, err = sqlx.Open("sqlite3", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.DB.Exec(`
		CREATE TABLE IF NOT EXISTS prompts (
			file_path       TEXT PRIMARY KEY,
			format          TEXT,
			prompt          TEXT,
			negative_prompt TEXT,
			parameters      TEXT,
			fields          TEXT
		)
	`)
	return err
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// ExistingPaths returns the set of file paths already loaded.
func (s *Store) ExistingPaths() (map[string]struct{}, error) {
	var paths []string
	if err := s.DB.Select(&paths, "SELECT file_path FROM prompts"); err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		existing[p] = struct{}{}
	}
	return existing, nil
}

// InsertBatch upserts a batch of records in one statement.
func (s *Store) InsertBatch(batch []Record) error {
	if len(batch) == 0 {
		return nil
	}
	valueStrings := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*6)
	for _, r := range batch {
		valueStrings = append(valueStrings, "(?, ?, ?, ?, ?, ?)")
		args = append(args, r.FilePath, r.Format, r.Prompt, r.NegativePrompt, r.Parameters, r.Fields)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO prompts (file_path, format, prompt, negative_prompt, parameters, fields) VALUES %s "+
			"ON CONFLICT(file_path) DO UPDATE SET format=excluded.format, prompt=excluded.prompt, "+
			"negative_prompt=excluded.negative_prompt, parameters=excluded.parameters, fields=excluded.fields",
		strings.Join(valueStrings, ","),
	)
	_, err := s.DB.Exec(stmt, args...)
	return err
}
