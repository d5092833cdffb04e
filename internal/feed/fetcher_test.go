package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rssWith(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Nexo news</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title> Story %d </title><link>
 https://news.example/%d </link><pubDate>Fri, 13 Feb 2026 10:00:00 +0000</pubDate></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestFetchLimitsAndTrims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nexo-alert/test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssWith(15))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 10, 5*time.Second, "nexo-alert/test")
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 10)

	assert.Equal(t, "Story 0", items[0].Title)
	assert.Equal(t, "https://news.example/0", items[0].Link)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, 2026, items[0].PublishedAt.Year())
	assert.Equal(t, "https://news.example/9", items[9].Link)
}

func TestFetchWithoutDates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title>
<item><title>Undated</title><link>https://news.example/u</link></item></channel></rss>`)
	}))
	defer srv.Close()

	items, err := NewFetcher(srv.URL, 10, time.Second, "").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].PublishedAt)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.URL, 10, time.Second, "").Fetch(context.Background())
	assert.Error(t, err)
}
