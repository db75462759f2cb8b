// Package sources contains the four source adapters that feed the ingestion
// pipeline: RSS/Atom feeds, GitHub repository search, arXiv paper search and
// Tavily site scraping. Each adapter normalizes its upstream payload into
// Candidate records at its own boundary and never lets a transport or parse
// failure escape a Fetch call.
package sources

import (
	"context"
	"time"
)

const (
	userAgent    = "gamepulse-aggregator/1.0"
	fetchTimeout = 10 * time.Second
)

// Candidate is an article produced by a source adapter before deduplication,
// filtering and persistence.
type Candidate struct {
	Title     string
	URL       string
	Source    string
	Category  string
	Summary   string
	Published *time.Time
}

// Source is one family of upstream content. Fetch performs the external
// calls for a single ingestion cycle and returns whatever candidates were
// obtained before any failure, possibly none. Errors are logged with the
// source identity inside the adapter; they do not propagate.
type Source interface {
	Name() string
	Fetch(ctx context.Context) []Candidate
}
