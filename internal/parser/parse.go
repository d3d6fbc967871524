package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sdmeta/internal/database"
	"sdmeta/meta"
)

// ParseImage reads a file and extracts its metadata, deriving the format
// hint from the file extension.
func ParseImage(path string) (meta.ImageMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return meta.ImageMeta{}, fmt.Errorf("read %s: %w", path, err)
	}
	hint := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return meta.Parse(data, hint), nil
}

// ParseFile extracts metadata from a file and flattens it into a storage
// record. The full fields map rides along as JSON.
func ParseFile(path string) (database.Record, error) {
	m, err := ParseImage(path)
	if err != nil {
		return database.Record{}, err
	}

	fieldsJSON, err := json.Marshal(m.Fields)
	if err != nil {
		return database.Record{}, fmt.Errorf("marshal fields for %s: %w", path, err)
	}

	return database.Record{
		FilePath:       path,
		Format:         string(m.Format),
		Prompt:         fieldString(m.Fields, "prompt"),
		NegativePrompt: fieldString(m.Fields, "negative_prompt", "Negative prompt", "Negative_prompt"),
		Parameters:     m.Raw["parameters"],
		Fields:         string(fieldsJSON),
	}, nil
}

func fieldString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			return s
		}
	}
	return ""
}
