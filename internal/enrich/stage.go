// Package enrich runs independent steps over a stream of items: steps within
// a stage run in parallel, stages run one after another.
package enrich

import (
	"context"
)

// Step mutates one item. Steps sharing a stage run concurrently on the same
// item, so they must write disjoint fields.
type Step[T any] struct {
	Name string
	Run  func(ctx context.Context, item *T) error
}

func NewStep[T any](name string, run func(ctx context.Context, item *T) error) Step[T] {
	return Step[T]{Name: name, Run: run}
}

// Stage groups steps that are safe to run in parallel for a single item.
type Stage[T any] struct {
	steps []Step[T]
}

func NewStage[T any](steps ...Step[T]) Stage[T] {
	return Stage[T]{steps: steps}
}
