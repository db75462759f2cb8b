package importfeeds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamepulse/aggregator/internal/config"
	"gamepulse/aggregator/internal/database"
	"gamepulse/aggregator/internal/store"
)

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := store.New(db)
	return NewImporter(st), st
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportFeeds(t *testing.T) {
	imp, st := newTestImporter(t)

	path := writeCSV(t, "name,url,category\n"+
		"Blog A,http://a.example/feed,Research\n"+
		",http://b.example/feed,\n"+
		"Dupe,http://a.example/feed,Research\n")

	require.NoError(t, imp.ImportFeeds(context.Background(), path))

	feeds, err := st.ListCustomFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	byURL := make(map[string]string, len(feeds))
	categories := make(map[string]string, len(feeds))
	for _, f := range feeds {
		byURL[f.URL] = f.Name
		categories[f.URL] = f.Category
	}

	assert.Equal(t, "Blog A", byURL["http://a.example/feed"])
	assert.Equal(t, "Research", categories["http://a.example/feed"])

	// Missing name falls back to the URL, missing category to the default.
	assert.Equal(t, "http://b.example/feed", byURL["http://b.example/feed"])
	assert.Equal(t, config.DefaultCategory, categories["http://b.example/feed"])
}

func TestImportFeedsRequiresURLColumn(t *testing.T) {
	imp, _ := newTestImporter(t)
	path := writeCSV(t, "name,category\nBlog,Research\n")
	assert.Error(t, imp.ImportFeeds(context.Background(), path))
}

func TestImportFeedsMissingFile(t *testing.T) {
	imp, _ := newTestImporter(t)
	assert.Error(t, imp.ImportFeeds(context.Background(), filepath.Join(t.TempDir(), "nope.csv")))
}
