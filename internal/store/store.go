// Package store is the durable collection of articles plus the two
// configuration tables that parametrize the RSS and scraping adapters.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"gamepulse/aggregator/internal/database"
	"gamepulse/aggregator/internal/models"
)

var (
	// ErrNotFound is returned when a feed or site id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a feed or site URL is already registered.
	ErrDuplicate = errors.New("already exists")
)

// Stats is a lightweight inventory of the article collection.
type Stats struct {
	Total       int64      `json:"total"`
	LastFetched *time.Time `json:"last_fetched"`
}

// Store wraps the database with the operations the ingestion pipeline and
// the API layer need.
type Store struct {
	db *database.DB
}

// New creates a Store over an open database connection.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// InsertArticles writes a batch of articles in one transaction. A URL that
// already exists is silently skipped: the unique constraint on url is the
// final dedup authority and first write wins. Returns inserted and duplicate
// counts.
func (s *Store) InsertArticles(ctx context.Context, articles []models.Article) (inserted, duplicates int, err error) {
	if len(articles) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO articles (title, url, source, category, summary, published)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING;`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		res, err := stmt.ExecContext(ctx,
			a.Title, a.URL, a.Source, a.Category, a.Summary, a.Published)
		if err != nil {
			log.Error().Err(err).Str("url", a.URL).Msg("Failed to insert article")
			continue
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil {
			log.Error().Err(err).Str("url", a.URL).Msg("Failed to get rows affected")
			continue
		}
		if rowsAffected > 0 {
			inserted++
		} else {
			duplicates++
			log.Debug().Str("url", a.URL).Msg("Duplicate URL detected")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return inserted, duplicates, nil
}

// QueryArticles returns up to limit articles, newest publication first, with
// an optional case-insensitive keyword match over title and summary.
func (s *Store) QueryArticles(ctx context.Context, keyword string, limit int) ([]models.Article, error) {
	articles := []models.Article{}
	var err error

	if keyword != "" {
		kw := "%" + keyword + "%"
		err = s.db.SelectContext(ctx, &articles, `
			SELECT * FROM articles
			WHERE title LIKE ? OR summary LIKE ?
			ORDER BY published DESC, fetched_at DESC
			LIMIT ?`, kw, kw, limit)
	} else {
		err = s.db.SelectContext(ctx, &articles, `
			SELECT * FROM articles
			ORDER BY published DESC, fetched_at DESC
			LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	return articles, nil
}

// Stats reports the total article count and the most recent fetch time.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := s.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM articles"); err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	var last time.Time
	err := s.db.GetContext(ctx, &last,
		"SELECT fetched_at FROM articles ORDER BY fetched_at DESC LIMIT 1")
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Empty collection, no last fetch time.
	case err != nil:
		return nil, fmt.Errorf("failed to query last fetch time: %w", err)
	default:
		stats.LastFetched = &last
	}
	return stats, nil
}

// ListCustomFeeds returns all registered feeds, newest first.
func (s *Store) ListCustomFeeds(ctx context.Context) ([]models.CustomFeed, error) {
	feeds := []models.CustomFeed{}
	err := s.db.SelectContext(ctx, &feeds,
		"SELECT * FROM custom_feeds ORDER BY added_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list custom feeds: %w", err)
	}
	return feeds, nil
}

// AddCustomFeed registers a feed and returns its id. A URL that is already
// registered yields ErrDuplicate.
func (s *Store) AddCustomFeed(ctx context.Context, name, url, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO custom_feeds (name, url, category) VALUES (?, ?, ?)",
		name, url, category)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("feed %s: %w", url, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to add custom feed: %w", err)
	}
	return res.LastInsertId()
}

// DeleteCustomFeed removes a feed and, in the same transaction, every article
// whose source matches the feed's name.
func (s *Store) DeleteCustomFeed(ctx context.Context, id int64) error {
	return s.deleteWithCascade(ctx, "custom_feeds", id)
}

// ListScrapedSites returns all registered scrape targets, newest first.
func (s *Store) ListScrapedSites(ctx context.Context) ([]models.ScrapedSite, error) {
	sites := []models.ScrapedSite{}
	err := s.db.SelectContext(ctx, &sites,
		"SELECT * FROM scraped_sites ORDER BY added_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list scraped sites: %w", err)
	}
	return sites, nil
}

// AddScrapedSite registers a scrape target and returns its id. A URL that is
// already registered yields ErrDuplicate.
func (s *Store) AddScrapedSite(ctx context.Context, name, url, category, query string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO scraped_sites (name, url, category, query) VALUES (?, ?, ?, ?)",
		name, url, category, query)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("site %s: %w", url, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to add scraped site: %w", err)
	}
	return res.LastInsertId()
}

// DeleteScrapedSite removes a site and the articles it produced, matching the
// cascade behavior of DeleteCustomFeed.
func (s *Store) DeleteScrapedSite(ctx context.Context, id int64) error {
	return s.deleteWithCascade(ctx, "scraped_sites", id)
}

// deleteWithCascade removes the configuration row and every article whose
// source equals the row's name. Articles reference their producer by name
// only, so the cleanup is a name match, not a foreign key.
func (s *Store) deleteWithCascade(ctx context.Context, table string, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var name string
	err = tx.GetContext(ctx, &name,
		fmt.Sprintf("SELECT name FROM %s WHERE id = ?", table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s id %d: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", table, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE source = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete articles for %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	if removed, err := res.RowsAffected(); err == nil && removed > 0 {
		log.Info().Str("source", name).Int64("articles", removed).Msg("Removed articles with deleted source")
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite unique constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
