package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// ParallelExecutorImpl runs independent pipeline stages concurrently
type ParallelExecutorImpl struct {
	maxConcurrency int
	timeout        time.Duration
}

// NewParallelExecutor creates a new parallel executor
func NewParallelExecutor() domain.ParallelExecutor {
	return &ParallelExecutorImpl{
		maxConcurrency: 0, // No limit by default
		timeout:        10 * time.Minute,
	}
}

// Execute runs every enabled task and waits for all of them. The first
// failure cancels the remaining tasks. If the context ends, the returned
// error wraps ctx.Err().
func (pe *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	if len(tasks) == 0 {
		return nil
	}

	if pe.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pe.timeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	if pe.maxConcurrency > 0 {
		g.SetLimit(pe.maxConcurrency)
	}

	for _, task := range tasks {
		if !task.IsEnabled() {
			continue
		}
		t := task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("task %s cancelled: %w", t.Name(), err)
			}
			if _, err := t.Execute(gctx); err != nil {
				return fmt.Errorf("task %s failed: %w", t.Name(), err)
			}
			return nil
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("parallel execution interrupted: %w", ctxErr)
	}
	return err
}

// SetMaxConcurrency sets the maximum number of concurrent tasks
func (pe *ParallelExecutorImpl) SetMaxConcurrency(max int) {
	pe.maxConcurrency = max
}

// SetTimeout sets the timeout for all tasks
func (pe *ParallelExecutorImpl) SetTimeout(timeout time.Duration) {
	pe.timeout = timeout
}

// StageTask is a named pipeline stage
type StageTask struct {
	name    string
	enabled bool
	execute func(context.Context) (interface{}, error)
}

// NewStageTask creates a new stage task
func NewStageTask(name string, enabled bool, execute func(context.Context) (interface{}, error)) domain.ExecutableTask {
	return &StageTask{
		name:    name,
		enabled: enabled,
		execute: execute,
	}
}

// Name returns the name of the task
func (t *StageTask) Name() string {
	return t.name
}

// Execute runs the task and returns the result
func (t *StageTask) Execute(ctx context.Context) (interface{}, error) {
	if t.execute == nil {
		return nil, fmt.Errorf("task %s has no execute function", t.name)
	}
	return t.execute(ctx)
}

// IsEnabled returns whether the task should be executed
func (t *StageTask) IsEnabled() bool {
	return t.enabled
}
