package social

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<div class="timeline">
  <div class="timeline-item"><div class="tweet-body"><div class="tweet-content">Nexo   launches
  <b>new</b> card</div></div></div>
  <div class="timeline-item"><div class="tweet-body">Second post</div></div>
  <div class="timeline-item"><div class="tweet-body">Third post</div></div>
  <div class="timeline-item"><div class="tweet-body">Fourth post</div></div>
  <div class="not-a-tweet">ignored</div>
</div></body></html>`

func TestFetchTakesFirstPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nexo-alert/test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, 3, time.Second, "nexo-alert/test")
	posts, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Nexo launches new card", "Second post", "Third post"}, posts)
}

func TestFetchNoPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>rate limited</body></html>`)
	}))
	defer srv.Close()

	posts, err := NewScraper(srv.URL, 3, time.Second, "").Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewScraper(srv.URL, 3, time.Second, "").Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewScraper(srv.URL, 3, 20*time.Millisecond, "").Fetch(context.Background())
	assert.Error(t, err)
}
