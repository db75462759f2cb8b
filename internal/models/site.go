package models

import "time"

// ScrapedSite represents a row in the scraped_sites table: a site with no
// usable feed, ingested through the Tavily search API instead. Query is the
// free-text search routed to the scraper; empty means the default query.
type ScrapedSite struct {
	ID       int64     `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	URL      string    `db:"url" json:"url"`
	Category string    `db:"category" json:"category"`
	Query    string    `db:"query" json:"query"`
	AddedAt  time.Time `db:"added_at" json:"added_at"`
}
