package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sdmeta/internal/database"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := database.Open(filepath.Join(t.TempDir(), "prompts.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	existing, err := store.ExistingPaths()
	require.NoError(t, err)
	require.Empty(t, existing)

	batch := []database.Record{
		{FilePath: "/img/a.png", Format: "png", Prompt: "a cat", Fields: "{}"},
		{FilePath: "/img/b.jpg", Format: "jpeg", Prompt: "a dog", Fields: "{}"},
	}
	require.NoError(t, store.InsertBatch(batch))

	existing, err = store.ExistingPaths()
	require.NoError(t, err)
	require.Len(t, existing, 2)
	require.Contains(t, existing, "/img/a.png")

	// Upserting the same path replaces, not duplicates.
	batch[0].Prompt = "a black cat"
	require.NoError(t, store.InsertBatch(batch[:1]))

	existing, err = store.ExistingPaths()
	require.NoError(t, err)
	require.Len(t, existing, 2)

	var prompt string
	require.NoError(t, store.DB.Get(&prompt, "SELECT prompt FROM prompts WHERE file_path = ?", "/img/a.png"))
	require.Equal(t, "a black cat", prompt)

	require.NoError(t, store.InsertBatch(nil))
}
