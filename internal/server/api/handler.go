// Package api implements the HTTP handlers over the orchestrator and store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"

	"gamepulse/aggregator/internal/config"
	"gamepulse/aggregator/internal/orchestrator"
	"gamepulse/aggregator/internal/store"
)

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	orch *orchestrator.Orchestrator
	st   *store.Store
}

// NewHandler creates a new handler instance.
func NewHandler(orch *orchestrator.Orchestrator, st *store.Store) *Handler {
	return &Handler{orch: orch, st: st}
}

// GetArticles returns stored articles, optionally filtered by the q keyword.
func (h *Handler) GetArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	keyword := strings.TrimSpace(query.Get("q"))

	limit := config.DefaultQueryLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > config.MaxQueryLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid 'limit' parameter: must be between 1 and %d", config.MaxQueryLimit))
			return
		}
		limit = parsed
	}

	articles, err := h.st.QueryArticles(r.Context(), keyword, limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error querying articles")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

// GetStatus returns the article count and last fetch time.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.st.Stats(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error reading stats")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Refresh runs an on-demand ingestion cycle and returns its counts.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	result := h.orch.RefreshAll(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// ListFeeds returns the registered custom feeds.
func (h *Handler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.st.ListCustomFeeds(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error listing feeds")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

// PreviewFeed validates a feed URL without persisting it.
func (h *Handler) PreviewFeed(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		writeError(w, http.StatusBadRequest, "url param required")
		return
	}

	info, err := h.orch.PreviewFeed(r.Context(), url)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type addFeedRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

type registeredResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Fetched  int    `json:"fetched"`
}

// AddFeed registers a custom feed and ingests it immediately.
func (h *Handler) AddFeed(w http.ResponseWriter, r *http.Request) {
	var req addFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	feed, fetched, err := h.orch.RegisterFeed(r.Context(), req.Name, req.URL, req.Category)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "feed already exists")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("could not read feed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, registeredResponse{
		ID: feed.ID, Name: feed.Name, URL: feed.URL, Category: feed.Category, Fetched: fetched,
	})
}

// DeleteFeed removes a custom feed and its articles.
func (h *Handler) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.orch.RemoveFeed)
}

// ListSites returns the registered scrape targets.
func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.st.ListScrapedSites(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error listing sites")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sites)
}

type addSiteRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Query    string `json:"query"`
}

// AddSite registers a scrape target and scrapes it immediately.
func (h *Handler) AddSite(w http.ResponseWriter, r *http.Request) {
	var req addSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	site, fetched, err := h.orch.RegisterSite(r.Context(), req.Name, req.URL, req.Category, req.Query)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "site already exists")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, registeredResponse{
		ID: site.ID, Name: site.Name, URL: site.URL, Category: site.Category, Fetched: fetched,
	})
}

// DeleteSite removes a scraped site and its articles.
func (h *Handler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.orch.RemoveSite)
}

func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, remove func(ctx context.Context, id int64) error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := remove(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Int64("id", id).Msg("Error deleting")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
