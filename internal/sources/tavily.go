package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"gamepulse/aggregator/internal/models"
	"gamepulse/aggregator/internal/normalize"
)

const (
	tavilyBaseURL      = "https://api.tavily.com/search"
	tavilyMaxResults   = 10
	defaultScrapeQuery = "AI gaming news"
	tavilySearchDepth  = "basic"
)

// SiteLister supplies the registered scrape targets.
type SiteLister interface {
	ListScrapedSites(ctx context.Context) ([]models.ScrapedSite, error)
}

// TavilySource ingests registered sites through the Tavily search API with a
// domain-restricted keyword search per site. Without an API key the whole
// adapter is a no-op, not an error.
type TavilySource struct {
	baseURL string
	apiKey  string
	lister  SiteLister
	client  *http.Client
}

// NewTavilySource creates the keyword-scrape adapter.
func NewTavilySource(apiKey string, lister SiteLister) *TavilySource {
	return &TavilySource{
		baseURL: tavilyBaseURL,
		apiKey:  apiKey,
		lister:  lister,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

func (s *TavilySource) Name() string { return "scrape" }

// Fetch scrapes every registered site.
func (s *TavilySource) Fetch(ctx context.Context) []Candidate {
	if s.apiKey == "" {
		log.Info().Msg("No TAVILY_API_KEY set, skipping scraped sites")
		return nil
	}

	sites, err := s.lister.ListScrapedSites(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load scraped sites")
		return nil
	}
	return s.FetchSites(ctx, sites)
}

// FetchSites scrapes the given sites. The register path passes the single
// newly added site so the caller sees results immediately.
func (s *TavilySource) FetchSites(ctx context.Context, sites []models.ScrapedSite) []Candidate {
	if s.apiKey == "" || len(sites) == 0 {
		return nil
	}

	var candidates []Candidate
	for _, site := range sites {
		results, err := s.searchSite(ctx, site)
		if err != nil {
			log.Error().Err(err).Str("site", site.Name).Msg("Error scraping site")
			continue
		}
		candidates = append(candidates, results...)
	}

	log.Info().
		Int("candidates", len(candidates)).
		Int("sites", len(sites)).
		Msg("Processed scraped sites")
	return candidates
}

type tavilyRequest struct {
	Query          string   `json:"query"`
	IncludeDomains []string `json:"include_domains"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

func (s *TavilySource) searchSite(ctx context.Context, site models.ScrapedSite) ([]Candidate, error) {
	domain := site.URL
	if parsed, err := url.Parse(site.URL); err == nil && parsed.Host != "" {
		domain = parsed.Host
	}

	query := site.Query
	if query == "" {
		query = defaultScrapeQuery
	}

	body, err := json.Marshal(tavilyRequest{
		Query:          query,
		IncludeDomains: []string{domain},
		MaxResults:     tavilyMaxResults,
		SearchDepth:    tavilySearchDepth,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, msg)
	}

	var data tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, r := range data.Results {
		title := normalize.CleanHTML(r.Title)
		if title == "" || r.URL == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Title:     title,
			URL:       r.URL,
			Source:    site.Name,
			Category:  site.Category,
			Summary:   normalize.Truncate(normalize.CleanHTML(r.Content)),
			Published: parsePublishedDate(r.PublishedDate),
		})
	}
	return candidates, nil
}

// parsePublishedDate handles the date shapes Tavily emits; nil when none fit.
func parsePublishedDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}
