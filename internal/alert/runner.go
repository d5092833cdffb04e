// Package alert runs the fetch, dedupe, record and notify pipeline.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nexo-alert/internal/chart"
	"nexo-alert/internal/config"
	"nexo-alert/internal/feed"
	"nexo-alert/internal/ledger"
	"nexo-alert/internal/notify"
	"nexo-alert/internal/seen"
	"nexo-alert/internal/state"
)

type NewsSource interface {
	Fetch(ctx context.Context) ([]feed.Item, error)
}

type PostSource interface {
	Fetch(ctx context.Context) ([]string, error)
}

type PriceSource interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

type ChartRenderer interface {
	Render(series []ledger.SeriesPoint, threshold float64) ([]byte, error)
}

// Stores are the three line lists a run reads and writes.
type Stores struct {
	News   state.Store
	Tweets state.Store
	Price  state.Store
}

// StoresFrom names the stores the way the file backend lays them out:
// news_cache.txt, tweet_cache.txt and price_cache.txt.
func StoresFrom(b state.Backend) Stores {
	return Stores{
		News:   b.Store("news"),
		Tweets: b.Store("tweet"),
		Price:  b.Store("price"),
	}
}

type Deps struct {
	News      NewsSource
	Posts     PostSource
	Price     PriceSource
	Chart     ChartRenderer // optional
	Notifiers []notify.Notifier
	Stores    Stores
}

type Runner struct {
	deps      Deps
	newsSeen  *seen.Filter[notify.NewsItem]
	postSeen  *seen.Filter[string]
	ledger    ledger.UpdateOptions
	threshold float64
	symbol    string
	subject   string
	chartPath string
	loc       *time.Location
	now       func() time.Time
}

func NewRunner(cfg *config.Config, deps Deps) (*Runner, error) {
	loc, err := time.LoadLocation(cfg.Price.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Price.Timezone, err)
	}
	return &Runner{
		deps:     deps,
		newsSeen: seen.New[notify.NewsItem](deps.Stores.News, cfg.SeenSetMaxLines),
		postSeen: seen.New[string](deps.Stores.Tweets, cfg.SeenSetMaxLines),
		ledger: ledger.UpdateOptions{
			Options: ledger.Options{
				Cap:   cfg.RetentionWindow,
				Dated: cfg.Price.Dated,
			},
			RecordFailedFetch: cfg.Price.RecordFailedFetch,
		},
		threshold: cfg.PriceThreshold,
		symbol:    cfg.Asset.Symbol,
		subject:   cfg.Email.Subject,
		chartPath: cfg.Chart.Path,
		loc:       loc,
		now:       time.Now,
	}, nil
}

// RunOnce performs one full pass. Fetch and notification failures are logged
// and absorbed; a failure to read or write state is returned and nothing is
// sent.
func (r *Runner) RunOnce(ctx context.Context) error {
	logger := slog.With("run_id", uuid.NewString())
	logger.Info("Starting run")

	err := r.run(ctx, logger)
	metricRuns.WithLabelValues(status(err)).Inc()
	if err != nil {
		logger.Error("Run failed", "error", err)
		return err
	}
	logger.Info("Run finished")
	return nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger) error {
	items, err := r.deps.News.Fetch(ctx)
	metricFetchCount.WithLabelValues("news", status(err)).Inc()
	if err != nil {
		logger.Error("Failed to fetch news", "error", err)
		items = nil
	}

	posts, err := r.deps.Posts.Fetch(ctx)
	metricFetchCount.WithLabelValues("social", status(err)).Inc()
	socialFailed := err != nil
	if socialFailed {
		logger.Error("Failed to fetch posts", "error", err)
		posts = nil
	}

	var sample ledger.Sample
	sample.Price, sample.Err = r.deps.Price.Fetch(ctx)
	metricFetchCount.WithLabelValues("price", status(sample.Err)).Inc()
	if sample.Err != nil {
		logger.Error("Failed to fetch price", "error", sample.Err)
	}

	newsCandidates := make([]seen.Candidate[notify.NewsItem], 0, len(items))
	for _, it := range items {
		newsCandidates = append(newsCandidates, seen.Candidate[notify.NewsItem]{
			Key:     it.Link,
			Payload: notify.NewsItem{Title: it.Title, Link: it.Link},
		})
	}
	newsBatch, err := r.newsSeen.Check(ctx, newsCandidates)
	if err != nil {
		return fmt.Errorf("failed to check news: %w", err)
	}

	postCandidates := make([]seen.Candidate[string], 0, len(posts))
	for _, p := range posts {
		postCandidates = append(postCandidates, seen.Candidate[string]{Key: p, Payload: p})
	}
	postBatch, err := r.postSeen.Check(ctx, postCandidates)
	if err != nil {
		return fmt.Errorf("failed to check posts: %w", err)
	}

	report, err := ledger.Update(ctx, r.deps.Stores.Price, r.ledger, sample, r.now().In(r.loc))
	if err != nil {
		return err
	}
	if report.Recorded {
		metricPrice.Set(report.Price.InexactFloat64())
		logger.Info("Recorded price",
			"price", report.Price.String(),
			"direction", report.Change.Direction.String(),
			"percent", report.Change.Percent)
	}

	if err := newsBatch.Commit(ctx); err != nil {
		return err
	}
	if err := postBatch.Commit(ctx); err != nil {
		return err
	}
	metricNewItems.WithLabelValues("news").Add(float64(len(newsBatch.Items)))
	metricNewItems.WithLabelValues("social").Add(float64(len(postBatch.Items)))
	logger.Info("Found new items", "news", len(newsBatch.Items), "posts", len(postBatch.Items))

	digest := notify.Digest{
		Symbol:       r.symbol,
		Subject:      r.subject,
		News:         newsBatch.Items,
		Posts:        postBatch.Items,
		SocialFailed: socialFailed,
		Price:        report,
	}
	msg := digest.Message(r.renderChart(logger, report.Series))

	for _, res := range notify.Dispatch(ctx, r.deps.Notifiers, msg) {
		metricNotify.WithLabelValues(res.Transport, status(res.Err)).Inc()
	}
	return nil
}

// renderChart draws the retained series and writes it to the chart path.
// Any failure leaves the notification without an image.
func (r *Runner) renderChart(logger *slog.Logger, series []ledger.SeriesPoint) []byte {
	if r.deps.Chart == nil {
		return nil
	}
	image, err := r.deps.Chart.Render(series, r.threshold)
	if errors.Is(err, chart.ErrNoData) {
		logger.Debug("No price points to chart")
		return nil
	}
	if err != nil {
		logger.Error("Failed to render chart", "error", err)
		return nil
	}
	if r.chartPath != "" {
		if err := os.WriteFile(r.chartPath, image, 0o644); err != nil {
			logger.Error("Failed to write chart", "path", r.chartPath, "error", err)
		}
	}
	return image
}
