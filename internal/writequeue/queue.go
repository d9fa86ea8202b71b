// Package writequeue runs background remote writes one at a time, in the order
// they were submitted, and hands the submitter a Task to observe the outcome.
//
// Submit never blocks and never fails synchronously. Pending writes sit in an
// unbounded FIFO, so callers may submit while holding their own locks. A write
// that still fails after the configured attempts is logged and reported
// through its Task; nothing reconciles it later.
package writequeue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrClosed = errors.New("write queue closed")

// Op is one remote write.
type Op func(ctx context.Context) error

type Config struct {
	MaxAttempts int           // 1 means no retry
	Backoff     time.Duration // pause between attempts
	Timeout     time.Duration // per attempt
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     30 * time.Second,
	}
}

// Task is the future for one submitted write.
type Task struct {
	Name string

	done     chan struct{}
	err      error
	attempts int
}

func newTask(name string) *Task {
	return &Task{Name: name, done: make(chan struct{})}
}

// Done is closed once the write succeeded or gave up.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is the final error; only meaningful after Done is closed.
func (t *Task) Err() error { return t.err }

// Attempts is the number of times the write ran; only meaningful after Done.
func (t *Task) Attempts() int { return t.attempts }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

type job struct {
	task *Task
	op   Op
}

type Queue struct {
	cfg Config
	wg  sync.WaitGroup
	// wake holds at most one pending signal for the worker.
	wake chan struct{}

	mu      sync.Mutex
	pending []job
	closed  bool
}

// New starts the queue worker.
func New(cfg Config) *Queue {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	q := &Queue{cfg: cfg, wake: make(chan struct{}, 1)}
	q.wg.Add(1)
	go q.run()
	return q
}

// Submit enqueues op. After Close the returned task is already finished with
// ErrClosed.
func (q *Queue) Submit(name string, op Op) *Task {
	task := newTask(name)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		task.finish(ErrClosed)
		return task
	}
	q.pending = append(q.pending, job{task: task, op: op})
	q.mu.Unlock()

	q.signal()
	return task
}

// Len is the number of writes waiting, not counting the one running.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting writes and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.signal()
	q.wg.Wait()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		j, ok := q.next()
		if !ok {
			return
		}
		j.task.finish(q.execute(j))
	}
}

// next pops the oldest job, waiting for one. It reports false once the queue
// is closed and drained.
func (q *Queue) next() (job, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			j := q.pending[0]
			q.pending[0] = job{}
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return j, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return job{}, false
		}
		<-q.wake
	}
}

func (q *Queue) execute(j job) error {
	var err error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		j.task.attempts = attempt
		err = q.attempt(j.op)
		if err == nil {
			return nil
		}
		log.Printf("Remote write %s failed (attempt %d/%d): %v", j.task.Name, attempt, q.cfg.MaxAttempts, err)
		if attempt < q.cfg.MaxAttempts {
			time.Sleep(q.cfg.Backoff)
		}
	}
	return err
}

func (q *Queue) attempt(op Op) error {
	ctx := context.Background()
	if q.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.Timeout)
		defer cancel()
	}
	return op(ctx)
}
