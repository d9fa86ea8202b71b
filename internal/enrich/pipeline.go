package enrich

import (
	"context"
	"log"
	"sync"
)

// ErrorFunc receives a failed step's error after its stage has finished.
type ErrorFunc[T any] func(item *T, step string, err error)

// Pipeline applies its stages to every item read from the input channel.
type Pipeline[T any] struct {
	stages  []Stage[T]
	onError ErrorFunc[T]
}

// NewPipeline constructs a Pipeline; stages are applied in order.
func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{
		stages: stages,
		onError: func(_ *T, step string, err error) {
			log.Printf("Step %s failed: %v", step, err)
		},
	}
}

// OnError replaces the default logging of step failures.
func (p *Pipeline[T]) OnError(fn ErrorFunc[T]) *Pipeline[T] {
	p.onError = fn
	return p
}

// Process consumes items and emits each one after all stages ran on it. A
// failing step does not stop later stages. The output closes when the input
// closes or ctx ends.
func (p *Pipeline[T]) Process(ctx context.Context, in <-chan *T) <-chan *T {
	out := make(chan *T)
	go func() {
		defer close(out)
		for {
			var item *T
			var ok bool
			select {
			case <-ctx.Done():
				return
			case item, ok = <-in:
				if !ok {
					return
				}
			}

			p.apply(ctx, item)

			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (p *Pipeline[T]) apply(ctx context.Context, item *T) {
	for _, stage := range p.stages {
		errs := make([]error, len(stage.steps))
		var wg sync.WaitGroup
		for i, step := range stage.steps {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = step.Run(ctx, item)
			}()
		}
		wg.Wait() // stage barrier

		for i, err := range errs {
			if err != nil {
				p.onError(item, stage.steps[i].Name, err)
			}
		}
	}
}
