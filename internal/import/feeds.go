// Package importfeeds bulk-registers custom feeds from a CSV file, for
// seeding a fresh database without going through the API one feed at a time.
package importfeeds

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"gamepulse/aggregator/internal/config"
	"gamepulse/aggregator/internal/store"
)

// Importer handles the feed import process
type Importer struct {
	st *store.Store
}

// NewImporter creates a new feed importer
func NewImporter(st *store.Store) *Importer {
	return &Importer{st: st}
}

// ImportFeeds reads a CSV with a name,url,category header and registers each
// row as a custom feed. Rows whose URL is already registered are skipped.
// Feeds are not preview-validated here; an unparsable feed simply contributes
// nothing on the next cycle.
func (i *Importer) ImportFeeds(ctx context.Context, csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting feed import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for idx, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	urlIdx, ok := col["url"]
	if !ok {
		return errors.New("CSV header must contain a url column")
	}

	var imported, skipped int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		url := strings.TrimSpace(record[urlIdx])
		if url == "" {
			continue
		}

		name := fieldOr(record, col, "name", url)
		category := fieldOr(record, col, "category", config.DefaultCategory)

		if _, err := i.st.AddCustomFeed(ctx, name, url, category); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				log.Warn().Str("url", url).Msg("Feed already registered, skipping")
				skipped++
				continue
			}
			return fmt.Errorf("failed to import feed %s: %w", url, err)
		}
		imported++
	}

	log.Info().Int("imported", imported).Int("skipped", skipped).Msg("Import completed")
	return nil
}

func fieldOr(record []string, col map[string]int, name, fallback string) string {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return fallback
	}
	if v := strings.TrimSpace(record[idx]); v != "" {
		return v
	}
	return fallback
}
