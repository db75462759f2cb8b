package models

import "time"

// CustomFeed represents a row in the custom_feeds table: a user-registered
// RSS/Atom source fetched alongside the built-in feeds. Articles produced by
// the feed carry its Name as their source and are removed with it.
type CustomFeed struct {
	ID       int64     `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	URL      string    `db:"url" json:"url"`
	Category string    `db:"category" json:"category"`
	AddedAt  time.Time `db:"added_at" json:"added_at"`
}
