package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"nexo-alert/internal/state"
)

// Load reads every parseable point from store. Malformed lines are logged
// and dropped; the next Save rewrites the store without them.
func Load(ctx context.Context, store state.Store, opts Options) (*Ledger, error) {
	lines, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load price ledger: %w", err)
	}

	points := make([]Point, 0, len(lines))
	for _, line := range lines {
		p, err := ParsePoint(line)
		if err != nil {
			slog.Warn("Skipping price line", "line", line, "error", err)
			continue
		}
		points = append(points, p)
	}
	return New(points, opts), nil
}

func (l *Ledger) Save(ctx context.Context, store state.Store) error {
	if err := store.Save(ctx, l.Lines()); err != nil {
		return fmt.Errorf("failed to save price ledger: %w", err)
	}
	return nil
}

// Sample is the outcome of one price fetch.
type Sample struct {
	Price decimal.Decimal
	Err   error
}

type UpdateOptions struct {
	Options
	// RecordFailedFetch appends a zero sample when the fetch failed instead
	// of leaving the ledger untouched.
	RecordFailedFetch bool
}

// Report is what the notification side needs from one ledger update.
type Report struct {
	Recorded bool
	Price    decimal.Decimal
	Change   Change
	Series   []SeriesPoint
}

// Update loads the ledger, records sample at now, persists it and reports
// the change. A failed sample is skipped unless RecordFailedFetch is set, in
// which case a zero price is recorded like any other.
func Update(ctx context.Context, store state.Store, opts UpdateOptions, sample Sample, now time.Time) (Report, error) {
	l, err := Load(ctx, store, opts.Options)
	if err != nil {
		return Report{}, err
	}

	if sample.Err != nil && !opts.RecordFailedFetch {
		return Report{Series: l.Series()}, nil
	}

	price := sample.Price
	if sample.Err != nil {
		price = decimal.Zero
	}
	l.Record(price, now)
	if err := l.Save(ctx, store); err != nil {
		return Report{}, err
	}

	return Report{
		Recorded: true,
		Price:    price,
		Change:   l.Change(),
		Series:   l.Series(),
	}, nil
}
