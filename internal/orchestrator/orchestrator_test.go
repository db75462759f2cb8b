package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamepulse/aggregator/internal/config"
	"gamepulse/aggregator/internal/database"
	"gamepulse/aggregator/internal/sources"
	"gamepulse/aggregator/internal/store"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	cfg := config.DefaultConfig()
	cfg.TavilyAPIKey = ""
	return New(st, cfg), st
}

type stubSource struct {
	name       string
	candidates []sources.Candidate
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) []sources.Candidate {
	return s.candidates
}

func TestRefreshAll(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	orch.sources = []sources.Source{
		&stubSource{name: "alpha", candidates: []sources.Candidate{
			{Title: "One", URL: "http://x/1", Source: "Alpha", Category: "AI Models"},
			{Title: "Two", URL: "http://x/2", Source: "Alpha", Category: "AI Models"},
		}},
		&stubSource{name: "beta", candidates: []sources.Candidate{
			{Title: "Three", URL: "http://x/3", Source: "Beta", Category: "Research"},
		}},
	}

	result := orch.RefreshAll(context.Background())

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 2, result.Counts["alpha"])
	assert.Equal(t, 1, result.Counts["beta"])
	assert.EqualValues(t, 3, result.Total)
	require.NotNil(t, result.LastFetched)

	// Re-running the same sources changes nothing in the store.
	result = orch.RefreshAll(context.Background())
	assert.Equal(t, 3, result.Fetched)
	assert.EqualValues(t, 3, result.Total)
}

func TestRegisterFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Community Blog</title>
  <item><title>Post</title><link>http://blog.example/post</link><description>body</description></item>
</channel></rss>`)
	}))
	defer ts.Close()

	orch, st := newTestOrchestrator(t)

	feed, fetched, err := orch.RegisterFeed(context.Background(), "", ts.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "Community Blog", feed.Name)
	assert.Equal(t, config.DefaultCategory, feed.Category)
	assert.Equal(t, 1, fetched)

	// The new feed's entries landed in the store right away.
	articles, err := st.QueryArticles(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Community Blog", articles[0].Source)

	_, _, err = orch.RegisterFeed(context.Background(), "Again", ts.URL, "")
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestRegisterFeedRejectsUnparsable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not a feed")
	}))
	defer ts.Close()

	orch, st := newTestOrchestrator(t)

	_, _, err := orch.RegisterFeed(context.Background(), "Bad", ts.URL, "")
	require.Error(t, err)

	feeds, err := st.ListCustomFeeds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, feeds)
}

func TestRegisterFeedRequiresURL(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	_, _, err := orch.RegisterFeed(context.Background(), "Name", "   ", "")
	assert.Error(t, err)
}

func TestRemoveFeedCascades(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Doomed Blog</title>
  <item><title>Post</title><link>http://doomed.example/post</link></item>
</channel></rss>`)
	}))
	defer ts.Close()

	orch, st := newTestOrchestrator(t)

	feed, _, err := orch.RegisterFeed(context.Background(), "", ts.URL, "")
	require.NoError(t, err)

	require.NoError(t, orch.RemoveFeed(context.Background(), feed.ID))

	articles, err := st.QueryArticles(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, articles)

	assert.ErrorIs(t, orch.RemoveFeed(context.Background(), feed.ID), store.ErrNotFound)
}

func TestRegisterSiteWithoutScraperKey(t *testing.T) {
	orch, st := newTestOrchestrator(t)

	site, fetched, err := orch.RegisterSite(context.Background(), "", "https://site.example/news", "", "npc ai")
	require.NoError(t, err)
	assert.Equal(t, "site.example", site.Name)
	assert.Equal(t, config.DefaultCategory, site.Category)
	assert.Equal(t, "npc ai", site.Query)
	// No API key means registration succeeds but nothing is scraped.
	assert.Equal(t, 0, fetched)

	sites, err := st.ListScrapedSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 1)

	require.NoError(t, orch.RemoveSite(context.Background(), site.ID))
	assert.ErrorIs(t, orch.RemoveSite(context.Background(), site.ID), store.ErrNotFound)
}
