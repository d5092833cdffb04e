package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

type Item struct {
	Title       string
	Link        string
	PublishedAt *time.Time
}

// Fetcher reads the first few entries of one news feed.
type Fetcher struct {
	url    string
	limit  int
	parser *gofeed.Parser
}

func NewFetcher(feedURL string, limit int, timeout time.Duration, userAgent string) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &Fetcher{
		url:    feedURL,
		limit:  limit,
		parser: parser,
	}
}

func (f *Fetcher) Fetch(ctx context.Context) ([]Item, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := feed.Items
	if f.limit > 0 && len(entries) > f.limit {
		entries = entries[:f.limit]
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		items = append(items, Item{
			Title:       strings.TrimSpace(entry.Title),
			Link:        strings.TrimSpace(entry.Link),
			PublishedAt: published,
		})
	}
	return items, nil
}
