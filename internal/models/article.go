package models

import "time"

// Article represents a row in the articles table. Rows are written exactly
// once: re-ingesting a URL that already exists is a no-op, so the first-seen
// title and summary always win.
type Article struct {
	ID        int64      `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	URL       string     `db:"url" json:"url"`
	Source    string     `db:"source" json:"source"`
	Category  string     `db:"category" json:"category"`
	Summary   string     `db:"summary" json:"summary"`
	Published *time.Time `db:"published" json:"published,omitempty"`
	FetchedAt time.Time  `db:"fetched_at" json:"fetched_at"`
}
