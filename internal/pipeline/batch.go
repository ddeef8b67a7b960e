package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Chunk splits items into fixed-size batches, the last one possibly short.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var batches [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// Outcome is one settled item result: either a value or that item's error.
type Outcome[T any] struct {
	Value T
	Err   error
}

// RunSettled processes items with bounded concurrency and collects every
// outcome. One item's failure never cancels sibling work; results are
// positionally aligned with the input.
func RunSettled[In, Out any](ctx context.Context, items []In, limit int, fn func(context.Context, In) (Out, error)) []Outcome[Out] {
	outcomes := make([]Outcome[Out], len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			val, err := fn(gctx, item)
			outcomes[i] = Outcome[Out]{Value: val, Err: err}
			return nil
		})
	}
	// Goroutines never return errors, so Wait only synchronizes.
	_ = g.Wait()

	return outcomes
}
