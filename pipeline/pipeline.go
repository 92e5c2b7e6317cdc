// Package pipeline runs independent analysis tasks on a bounded worker
// pool. Each task owns the tables it reads and produces; nothing is shared
// between tasks except the registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/logutil"
)

// ErrTaskPanicked wraps the value of a task that panicked.
var ErrTaskPanicked = errors.New("task panicked")

// Task is one unit of analysis work.
type Task interface {
	Name() string
	// Run returns the number of rows the task produced.
	Run(ctx context.Context) (int, error)
}

type funcTask struct {
	name string
	fn   func(ctx context.Context) (int, error)
}

func (t funcTask) Name() string                         { return t.name }
func (t funcTask) Run(ctx context.Context) (int, error) { return t.fn(ctx) }

// Func wraps fn as a Task.
func Func(name string, fn func(ctx context.Context) (int, error)) Task {
	return funcTask{name: name, fn: fn}
}

// Runner executes tasks on an ants pool.
type Runner struct {
	pool    *ants.Pool
	metrics *Metrics
}

// NewRunner creates a runner with at most workers tasks running at once.
func NewRunner(workers int, metrics *Metrics) (*Runner, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	if metrics == nil {
		if metrics, err = NewMetrics(nil); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return &Runner{pool: pool, metrics: metrics}, nil
}

// Metrics returns the runner metrics.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// Release stops the worker pool.
func (r *Runner) Release() {
	r.pool.Release()
}

// Run executes every task and waits for all of them. Tasks not yet started
// when ctx is done are skipped with ctx.Err(); running tasks are not
// interrupted. The returned error joins every task failure.
func (r *Runner) Run(ctx context.Context, tasks ...Task) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, task := range tasks {
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				r.metrics.TaskCounter.WithLabelValues("skipped").Inc()
				fail(fmt.Errorf("%s: %w", task.Name(), err))
				return
			}
			if err := r.run(ctx, task); err != nil {
				fail(fmt.Errorf("%s: %w", task.Name(), err))
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("%s: failed to submit: %w", task.Name(), err))
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (r *Runner) run(ctx context.Context, task Task) (err error) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, v)
		}
		r.metrics.DurationHistogram.WithLabelValues(task.Name()).Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "failed"
			logutil.Warn("task failed", zap.String("task", task.Name()), zap.Error(err))
		}
		r.metrics.TaskCounter.WithLabelValues(status).Inc()
	}()

	logutil.Debug("task started", zap.String("task", task.Name()))
	rows, err := task.Run(ctx)
	if rows > 0 {
		r.metrics.RowsCounter.WithLabelValues(task.Name()).Add(float64(rows))
	}
	logutil.Debug("task finished",
		zap.String("task", task.Name()),
		zap.Int("rows", rows),
		zap.Duration("elapsed", time.Since(start)))
	return err
}
