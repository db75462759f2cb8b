package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamepulse/aggregator/internal/config"
	"gamepulse/aggregator/internal/database"
	"gamepulse/aggregator/internal/models"
	"gamepulse/aggregator/internal/orchestrator"
	"gamepulse/aggregator/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	cfg := config.DefaultConfig()
	cfg.TavilyAPIKey = ""
	return NewHandler(orchestrator.New(st, cfg), st), st
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Handler Test Feed</title>
  <item><title>Post</title><link>http://feed.example/post</link><description>body</description></item>
</channel></rss>`)
	}))
}

func TestGetArticles(t *testing.T) {
	h, st := newTestHandler(t)

	_, _, err := st.InsertArticles(context.Background(), []models.Article{
		{Title: "NPC update", URL: "http://x/1", Source: "Test", Category: "AI Models"},
		{Title: "Other news", URL: "http://x/2", Source: "Test", Category: "AI Models"},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.GetArticles(rec, httptest.NewRequest(http.MethodGet, "/api/articles?q=npc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var articles []models.Article
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&articles))
	require.Len(t, articles, 1)
	assert.Equal(t, "NPC update", articles[0].Title)
}

func TestGetArticlesLimitValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, limit := range []string{"0", "-5", "abc", fmt.Sprint(config.MaxQueryLimit + 1)} {
		rec := httptest.NewRecorder()
		h.GetArticles(rec, httptest.NewRequest(http.MethodGet, "/api/articles?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestGetStatus(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats store.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.EqualValues(t, 0, stats.Total)
}

func TestAddFeed(t *testing.T) {
	ts := newFeedServer(t)
	defer ts.Close()

	h, _ := newTestHandler(t)
	body := fmt.Sprintf(`{"url": %q}`, ts.URL)

	rec := httptest.NewRecorder()
	h.AddFeed(rec, httptest.NewRequest(http.MethodPost, "/api/feeds", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp registeredResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Handler Test Feed", resp.Name)
	assert.Equal(t, 1, resp.Fetched)

	// Same URL again conflicts.
	rec = httptest.NewRecorder()
	h.AddFeed(rec, httptest.NewRequest(http.MethodPost, "/api/feeds", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddFeedValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.AddFeed(rec, httptest.NewRequest(http.MethodPost, "/api/feeds", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.AddFeed(rec, httptest.NewRequest(http.MethodPost, "/api/feeds", strings.NewReader(`{"url": ""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteFeed(t *testing.T) {
	ts := newFeedServer(t)
	defer ts.Close()

	h, st := newTestHandler(t)
	id, err := st.AddCustomFeed(context.Background(), "Test", ts.URL, "AI Models")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/feeds/1", nil)
	req.SetPathValue("id", fmt.Sprint(id))
	rec := httptest.NewRecorder()
	h.DeleteFeed(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Gone now.
	req = httptest.NewRequest(http.MethodDelete, "/api/feeds/1", nil)
	req.SetPathValue("id", fmt.Sprint(id))
	rec = httptest.NewRecorder()
	h.DeleteFeed(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/feeds/abc", nil)
	req.SetPathValue("id", "abc")
	rec = httptest.NewRecorder()
	h.DeleteFeed(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddSiteWithoutScraperKey(t *testing.T) {
	h, st := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.AddSite(rec, httptest.NewRequest(http.MethodPost, "/api/sites",
		strings.NewReader(`{"url": "https://site.example", "query": "npc ai"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp registeredResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "site.example", resp.Name)
	assert.Equal(t, 0, resp.Fetched)

	sites, err := st.ListScrapedSites(context.Background())
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}

func TestPreviewFeedEndpoint(t *testing.T) {
	ts := newFeedServer(t)
	defer ts.Close()

	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.PreviewFeed(rec, httptest.NewRequest(http.MethodGet, "/api/feeds/preview?url="+ts.URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.PreviewFeed(rec, httptest.NewRequest(http.MethodGet, "/api/feeds/preview", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
