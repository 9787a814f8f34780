// Package gopool runs groups of functions concurrently and retries
// operations that may fail transiently.
package gopool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AllWithLimit runs fns with at most max of them active at once and returns
// the first error. A max below 1 means no limit.
func AllWithLimit(max int, fns ...func() error) error {
	return AllContext(context.Background(), max, func(context.Context) []func() error { return fns })
}

// All runs fns concurrently and returns the first error.
func All(fns ...func() error) error {
	return AllWithLimit(-1, fns...)
}

// AllContext builds the functions from a context that is cancelled as soon as
// one of them fails, so the rest can stop early.
func AllContext(ctx context.Context, max int, build func(ctx context.Context) []func() error) error {
	g, ctx := errgroup.WithContext(ctx)
	if max > 0 {
		g.SetLimit(max)
	}
	for _, fn := range build(ctx) {
		g.Go(fn)
	}
	return g.Wait()
}
