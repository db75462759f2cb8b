// Package orchestrator drives the four source families through refresh
// cycles, on a recurring timer and on demand, and owns the registration flows
// for custom feeds and scraped sites.
package orchestrator

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gamepulse/aggregator/internal/config"
	"gamepulse/aggregator/internal/models"
	"gamepulse/aggregator/internal/sources"
	"gamepulse/aggregator/internal/store"
)

// Result summarizes one refresh cycle: candidates attempted per source
// family plus the store inventory after the cycle.
type Result struct {
	Counts      map[string]int `json:"counts"`
	Fetched     int            `json:"fetched"`
	Total       int64          `json:"total"`
	LastFetched *time.Time     `json:"last_fetched"`
}

// Orchestrator wires the source adapters to the store.
type Orchestrator struct {
	store   *store.Store
	feeds   *sources.FeedSource
	scraper *sources.TavilySource
	sources []sources.Source
}

// New builds an orchestrator with the four source families configured from
// cfg. Credentials are injected here once; adapters never read the
// environment themselves.
func New(st *store.Store, cfg *config.Config) *Orchestrator {
	feeds := sources.NewFeedSource(st)
	scraper := sources.NewTavilySource(cfg.TavilyAPIKey, st)

	return &Orchestrator{
		store:   st,
		feeds:   feeds,
		scraper: scraper,
		sources: []sources.Source{
			feeds,
			sources.NewGitHubSource(cfg.GitHubToken),
			sources.NewArxivSource(),
			scraper,
		},
	}
}

// RefreshAll runs one ingestion cycle across all four source families. The
// families fan out concurrently; they share no state besides the store, each
// family's batch is its own transaction, and per-run dedup sets live inside
// each Fetch call, so overlapping cycles stay safe.
func (o *Orchestrator) RefreshAll(ctx context.Context) *Result {
	result := &Result{Counts: make(map[string]int, len(o.sources))}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, src := range o.sources {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()
			candidates := src.Fetch(ctx)
			inserted, duplicates, err := o.store.InsertArticles(ctx, toArticles(candidates))
			if err != nil {
				log.Error().Err(err).Str("source", src.Name()).Msg("Failed to store candidates")
			} else {
				log.Info().
					Str("source", src.Name()).
					Int("fetched", len(candidates)).
					Int("inserted", inserted).
					Int("duplicates", duplicates).
					Msg("Source refresh complete")
			}

			mu.Lock()
			result.Counts[src.Name()] = len(candidates)
			result.Fetched += len(candidates)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	stats, err := o.store.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read store stats")
	} else {
		result.Total = stats.Total
		result.LastFetched = stats.LastFetched
	}
	return result
}

// PreviewFeed validates that url is a parsable feed and reports its title
// and entry count.
func (o *Orchestrator) PreviewFeed(ctx context.Context, url string) (*sources.FeedPreview, error) {
	return o.feeds.Preview(ctx, url)
}

// RegisterFeed validates, persists and immediately ingests a custom feed.
// When name is empty it defaults to the feed's own title. Returns the created
// feed and the number of candidates fetched from it.
func (o *Orchestrator) RegisterFeed(ctx context.Context, name, feedURL, category string) (*models.CustomFeed, int, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, 0, errors.New("url is required")
	}

	info, err := o.feeds.Preview(ctx, feedURL)
	if err != nil {
		return nil, 0, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = info.Title
	}
	if name == "" {
		name = feedURL
	}
	if category = strings.TrimSpace(category); category == "" {
		category = config.DefaultCategory
	}

	id, err := o.store.AddCustomFeed(ctx, name, feedURL, category)
	if err != nil {
		return nil, 0, err
	}
	feed := &models.CustomFeed{ID: id, Name: name, URL: feedURL, Category: category}

	def := sources.FeedDef{Name: name, URL: feedURL, Category: category}
	candidates, err := o.feeds.FetchFeed(ctx, def)
	if err != nil {
		log.Error().Err(err).Str("feed", name).Msg("Immediate fetch of new feed failed")
		return feed, 0, nil
	}
	if _, _, err := o.store.InsertArticles(ctx, toArticles(candidates)); err != nil {
		log.Error().Err(err).Str("feed", name).Msg("Failed to store articles for new feed")
	}

	log.Info().Str("feed", name).Int("fetched", len(candidates)).Msg("Registered custom feed")
	return feed, len(candidates), nil
}

// RegisterSite persists a scrape target and immediately scrapes just that
// site. When name is empty it defaults to the URL's host. Returns the created
// site and the number of candidates fetched from it.
func (o *Orchestrator) RegisterSite(ctx context.Context, name, siteURL, category, query string) (*models.ScrapedSite, int, error) {
	siteURL = strings.TrimSpace(siteURL)
	if siteURL == "" {
		return nil, 0, errors.New("url is required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		if parsed, err := url.Parse(siteURL); err == nil && parsed.Host != "" {
			name = parsed.Host
		} else {
			name = siteURL
		}
	}
	if category = strings.TrimSpace(category); category == "" {
		category = config.DefaultCategory
	}
	query = strings.TrimSpace(query)

	id, err := o.store.AddScrapedSite(ctx, name, siteURL, category, query)
	if err != nil {
		return nil, 0, err
	}
	site := &models.ScrapedSite{ID: id, Name: name, URL: siteURL, Category: category, Query: query}

	candidates := o.scraper.FetchSites(ctx, []models.ScrapedSite{*site})
	if _, _, err := o.store.InsertArticles(ctx, toArticles(candidates)); err != nil {
		log.Error().Err(err).Str("site", name).Msg("Failed to store articles for new site")
	}

	log.Info().Str("site", name).Int("fetched", len(candidates)).Msg("Registered scraped site")
	return site, len(candidates), nil
}

// RemoveFeed deletes a custom feed and the articles it produced.
func (o *Orchestrator) RemoveFeed(ctx context.Context, id int64) error {
	return o.store.DeleteCustomFeed(ctx, id)
}

// RemoveSite deletes a scraped site and the articles it produced.
func (o *Orchestrator) RemoveSite(ctx context.Context, id int64) error {
	return o.store.DeleteScrapedSite(ctx, id)
}

// Run executes an initial refresh cycle and then one per interval until ctx
// is cancelled. On-demand cycles may run concurrently with the timer.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("Starting refresh scheduler")

	o.runCycle(ctx, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.runCycle(ctx, interval)
		case <-ctx.Done():
			log.Info().Msg("Refresh scheduler stopping")
			return
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, interval time.Duration) {
	start := time.Now()
	result := o.RefreshAll(ctx)
	log.Info().
		Dur("duration", time.Since(start)).
		Int("fetched", result.Fetched).
		Int64("total", result.Total).
		Time("next_run", time.Now().Add(interval)).
		Msg("Refresh cycle finished")
}

// toArticles converts adapter candidates into store rows.
func toArticles(candidates []sources.Candidate) []models.Article {
	articles := make([]models.Article, 0, len(candidates))
	for _, c := range candidates {
		articles = append(articles, models.Article{
			Title:     c.Title,
			URL:       c.URL,
			Source:    c.Source,
			Category:  c.Category,
			Summary:   c.Summary,
			Published: c.Published,
		})
	}
	return articles
}
