// Package parallel wraps errgroup with the small fan-out shapes the backend
// uses.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run executes the supplied tasks with an optional concurrency limit.
// Tasks receive a context that is cancelled if any sibling returns an error.
func Run(ctx context.Context, limit int, tasks ...func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for _, task := range tasks {
		if task == nil {
			continue
		}
		group.Go(func() error {
			return task(ctx)
		})
	}

	return group.Wait()
}

// ForEach runs fn for every item, honouring the provided concurrency limit.
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	if fn == nil || len(items) == 0 {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for _, item := range items {
		group.Go(func() error {
			return fn(ctx, item)
		})
	}

	return group.Wait()
}
