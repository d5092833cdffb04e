package alert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexo-alert/internal/chart"
	"nexo-alert/internal/config"
	"nexo-alert/internal/feed"
	"nexo-alert/internal/ledger"
	"nexo-alert/internal/notify"
	"nexo-alert/internal/seen"
	"nexo-alert/internal/state"
)

type fakeNews struct {
	items []feed.Item
	err   error
}

func (f *fakeNews) Fetch(context.Context) ([]feed.Item, error) { return f.items, f.err }

type fakePosts struct {
	posts []string
	err   error
}

func (f *fakePosts) Fetch(context.Context) ([]string, error) { return f.posts, f.err }

type fakePrice struct {
	prices []string
	err    error
}

func (f *fakePrice) Fetch(context.Context) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	p := f.prices[0]
	if len(f.prices) > 1 {
		f.prices = f.prices[1:]
	}
	return decimal.RequireFromString(p), nil
}

type fakeChart struct {
	calls  int
	series []ledger.SeriesPoint
}

func (f *fakeChart) Render(series []ledger.SeriesPoint, threshold float64) ([]byte, error) {
	f.calls++
	f.series = series
	if len(series) == 0 {
		return nil, chart.ErrNoData
	}
	return []byte("png"), nil
}

type recorder struct {
	msgs  []notify.Message
	after func()
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.msgs = append(r.msgs, msg)
	if r.after != nil {
		r.after()
	}
	return nil
}

type brokenStore struct {
	state.Store
}

func (brokenStore) Append(context.Context, []string) error { return errors.New("disk full") }

type fixture struct {
	news    *fakeNews
	posts   *fakePosts
	price   *fakePrice
	chart   *fakeChart
	out     *recorder
	backend *state.MemoryBackend
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Chart.Path = filepath.Join(t.TempDir(), "chart.png")
	return &fixture{
		news: &fakeNews{items: []feed.Item{
			{Title: "Nexo launches card", Link: "https://news/1"},
			{Title: "Nexo listing", Link: "https://news/2"},
		}},
		posts:   &fakePosts{posts: []string{"gm nexo", "nexo to the moon"}},
		price:   &fakePrice{prices: []string{"1.22"}},
		chart:   &fakeChart{},
		out:     &recorder{},
		backend: state.NewMemoryBackend(),
		cfg:     cfg,
	}
}

func (f *fixture) runner(t *testing.T, stores Stores) *Runner {
	t.Helper()
	r, err := NewRunner(f.cfg, Deps{
		News:      f.news,
		Posts:     f.posts,
		Price:     f.price,
		Chart:     f.chart,
		Notifiers: []notify.Notifier{f.out},
		Stores:    stores,
	})
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func lines(t *testing.T, s state.Store) []string {
	t.Helper()
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	return got
}

func TestRunOnceReportsNewItemsAndPrice(t *testing.T) {
	f := newFixture(t)
	stores := StoresFrom(f.backend)
	r := f.runner(t, stores)

	require.NoError(t, r.RunOnce(context.Background()))

	require.Len(t, f.out.msgs, 1)
	msg := f.out.msgs[0]
	assert.Equal(t, "[Nexo Alert] News/Price/Twitter", msg.Subject)
	assert.Contains(t, msg.Text, "[News] Nexo launches card (https://news/1)")
	assert.Contains(t, msg.Text, "[Tweet] nexo to the moon")
	assert.Contains(t, msg.Text, "📊 NEXO Current Price: $1.22")
	assert.Equal(t, []byte("png"), msg.Image)

	assert.Equal(t, []string{"https://news/1", "https://news/2"}, lines(t, stores.News))
	assert.Equal(t, []string{"gm nexo", "nexo to the moon"}, lines(t, stores.Tweets))
	assert.Equal(t, []string{"1.22"}, lines(t, stores.Price))

	written, err := os.ReadFile(f.cfg.Chart.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), written)
}

func TestRunOnceWithNothingNewStillNotifies(t *testing.T) {
	f := newFixture(t)
	f.price.prices = []string{"1.22", "1.19"}
	r := f.runner(t, StoresFrom(f.backend))

	require.NoError(t, r.RunOnce(context.Background()))
	require.NoError(t, r.RunOnce(context.Background()))

	require.Len(t, f.out.msgs, 2)
	second := f.out.msgs[1].Text
	assert.Contains(t, second, "No new news or tweets.")
	assert.NotContains(t, second, "[News]")
	assert.Contains(t, second, "$1.19")
	assert.Contains(t, second, "📉 Down (-2.46%)")
	assert.Len(t, f.chart.series, 2)
}

func TestRunOnceDegradesOnFetchFailures(t *testing.T) {
	f := newFixture(t)
	f.news.err = errors.New("feed down")
	f.posts.err = errors.New("nitter down")
	f.price.err = errors.New("rate limited")
	stores := StoresFrom(f.backend)
	r := f.runner(t, stores)

	require.NoError(t, r.RunOnce(context.Background()))

	require.Len(t, f.out.msgs, 1)
	text := f.out.msgs[0].Text
	assert.Contains(t, text, "[Tweet] Tweet collection failed")
	assert.Contains(t, text, "Current Price: unavailable")
	assert.Empty(t, f.out.msgs[0].Image)
	assert.Empty(t, lines(t, stores.Price))
	assert.Empty(t, lines(t, stores.News))
}

func TestRunOnceRecordsFailedPriceWhenConfigured(t *testing.T) {
	f := newFixture(t)
	f.cfg.Price.RecordFailedFetch = true
	f.price.err = errors.New("rate limited")
	stores := StoresFrom(f.backend)
	require.NoError(t, stores.Price.Save(context.Background(), []string{"1.22"}))
	r := f.runner(t, stores)

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, []string{"1.22", "0"}, lines(t, stores.Price))
	assert.Contains(t, f.out.msgs[0].Text, "📉 Down (-100.00%)")
}

func TestRunOnceDatedLedgerUsesTimezone(t *testing.T) {
	f := newFixture(t)
	f.cfg.Price.Dated = true
	stores := StoresFrom(f.backend)
	r := f.runner(t, stores)
	r.loc = time.FixedZone("JST", 9*60*60)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC) }

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, []string{"2024-05-02,1.22"}, lines(t, stores.Price))
}

func TestRunOncePersistFailureAbortsBeforeNotify(t *testing.T) {
	f := newFixture(t)
	stores := StoresFrom(f.backend)
	stores.Tweets = brokenStore{Store: stores.Tweets}
	r := f.runner(t, stores)

	err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, seen.ErrPersist)
	assert.Empty(t, f.out.msgs)
}

func TestRunWithoutChart(t *testing.T) {
	f := newFixture(t)
	r, err := NewRunner(f.cfg, Deps{
		News:      f.news,
		Posts:     f.posts,
		Price:     f.price,
		Notifiers: []notify.Notifier{f.out},
		Stores:    StoresFrom(f.backend),
	})
	require.NoError(t, err)

	require.NoError(t, r.RunOnce(context.Background()))
	require.Len(t, f.out.msgs, 1)
	assert.Empty(t, f.out.msgs[0].Image)
}

func TestRunStopsWhenContextIsDone(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, StoresFrom(f.backend))

	ctx, cancel := context.WithCancel(context.Background())
	f.out.after = cancel

	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, f.out.msgs, 1)
}

func TestRunCronRejectsBadExpression(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, StoresFrom(f.backend))

	err := r.RunCron(context.Background(), "every other tuesday")
	assert.ErrorContains(t, err, "failed to add cron job")
	assert.Empty(t, f.out.msgs)
}

func TestNewRunnerRejectsBadTimezone(t *testing.T) {
	f := newFixture(t)
	f.cfg.Price.Timezone = "Mars/Olympus"
	_, err := NewRunner(f.cfg, Deps{Stores: StoresFrom(f.backend)})
	assert.Error(t, err)
}
