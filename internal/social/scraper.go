// Package social scrapes recent posts from a Nitter search page.
//
// Public Nitter instances come and go; callers are expected to treat a
// failed scrape as a normal outcome.
package social

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const postSelector = "div.tweet-body"

type Scraper struct {
	client    *http.Client
	url       string
	limit     int
	userAgent string
}

func NewScraper(searchURL string, limit int, timeout time.Duration, userAgent string) *Scraper {
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		url:       searchURL,
		limit:     limit,
		userAgent: userAgent,
	}
}

// Fetch returns the text of the first posts on the page, whitespace folded.
func (s *Scraper) Fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search page responded with status %d: %s", resp.StatusCode, string(body))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var posts []string
	doc.Find(postSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if s.limit > 0 && i >= s.limit {
			return false
		}
		posts = append(posts, strings.Join(strings.Fields(sel.Text()), " "))
		return true
	})
	return posts, nil
}
