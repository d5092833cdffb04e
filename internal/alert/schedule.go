package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Run runs immediately and then once per interval until ctx is done.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.RunOnce(ctx)
		}
	}
}

// RunCron runs immediately and then on every activation of expr, evaluated
// in the price timezone. An activation that fires while a run is still in
// progress is skipped.
func (r *Runner) RunCron(ctx context.Context, expr string) error {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(expr, func() { _ = r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	_ = r.RunOnce(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
