// Package seen decides which fetched items have not been reported yet.
//
// A Filter is backed by an append-only list of keys. Checking a batch never
// writes; committing it appends exactly the keys that were new, in the order
// they were fetched.
package seen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"nexo-alert/internal/state"
)

// ErrPersist wraps every failure to write the seen-set back.
var ErrPersist = errors.New("failed to persist seen-set")

// Candidate is one fetched item together with the key that identifies it.
type Candidate[T any] struct {
	Key     string
	Payload T
}

// NormalizeKey trims the key and folds interior whitespace, line breaks
// included, into single spaces so every key fits on one stored line.
func NormalizeKey(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

type Filter[T any] struct {
	store    state.Store
	maxLines int
}

// New returns a filter over store. With maxLines > 0 the store is cut down
// to its newest maxLines lines whenever a commit would grow past it.
func New[T any](store state.Store, maxLines int) *Filter[T] {
	return &Filter[T]{store: store, maxLines: maxLines}
}

// Batch is the outcome of Check. Items holds the new payloads in candidate
// order; nothing is persisted until Commit.
type Batch[T any] struct {
	Items []T

	filter    *Filter[T]
	existing  []string
	keys      []string
	committed bool
}

// Check loads the seen-set and keeps the candidates whose key is absent.
// Keys that are empty after normalization are dropped. A key repeated
// inside the batch is reported once.
func (f *Filter[T]) Check(ctx context.Context, candidates []Candidate[T]) (*Batch[T], error) {
	existing, err := f.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen-set: %w", err)
	}

	known := make(map[string]struct{}, len(existing)+len(candidates))
	for _, k := range existing {
		known[k] = struct{}{}
	}

	b := &Batch[T]{filter: f, existing: existing}
	for _, c := range candidates {
		key := NormalizeKey(c.Key)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		b.keys = append(b.keys, key)
		b.Items = append(b.Items, c.Payload)
	}
	return b, nil
}

// Keys returns the normalized keys Commit will record.
func (b *Batch[T]) Keys() []string {
	return slices.Clone(b.keys)
}

// Commit records the batch's new keys. A store already over the line cap is
// cut down even when there is nothing new. Committing twice is a no-op.
func (b *Batch[T]) Commit(ctx context.Context) error {
	if b.committed {
		return nil
	}

	store := b.filter.store
	limit := b.filter.maxLines
	overflow := limit > 0 && len(b.existing)+len(b.keys) > limit
	if len(b.keys) == 0 && !overflow {
		b.committed = true
		return nil
	}

	if overflow {
		all := append(slices.Clone(b.existing), b.keys...)
		if err := store.Save(ctx, all[len(all)-limit:]); err != nil {
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
	} else if err := store.Append(ctx, b.keys); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	b.committed = true
	return nil
}

// Apply checks candidates and commits the result in one call.
func (f *Filter[T]) Apply(ctx context.Context, candidates []Candidate[T]) ([]T, error) {
	b, err := f.Check(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if err := b.Commit(ctx); err != nil {
		return nil, err
	}
	return b.Items, nil
}
