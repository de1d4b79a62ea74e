// Package correlator turns the asynchronous acknowledgement stream into a
// bounded synchronous wait: callers register interest by task id, and the
// confirmation consumer fulfils them by uid.
package correlator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"msfiles/apperr"
	"msfiles/models"
	"msfiles/repository"
)

type waiter struct {
	ch chan *models.Task
}

type Correlator struct {
	repo   repository.Repository
	logger *zap.Logger

	mu      sync.Mutex
	waiters map[int64]*waiter
}

func New(repo repository.Repository, logger *zap.Logger) *Correlator {
	return &Correlator{
		repo:    repo,
		logger:  logger,
		waiters: make(map[int64]*waiter),
	}
}

// Wait blocks until an acknowledgement for the task arrives or the bound
// expires. On timeout the waiter is removed and ErrWaitTimeout returned;
// the pipeline itself keeps running either way.
func (c *Correlator) Wait(ctx context.Context, taskID int64, bound time.Duration) (*models.Task, error) {
	w := &waiter{ch: make(chan *models.Task, 1)}

	c.mu.Lock()
	c.waiters[taskID] = w
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.waiters[taskID] == w {
			delete(c.waiters, taskID)
		}
		c.mu.Unlock()
	}()

	timer := time.NewTimer(bound)
	defer timer.Stop()

	select {
	case task := <-w.ch:
		return task, nil
	case <-timer.C:
		return nil, apperr.ErrWaitTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Confirm resolves an acknowledgement uid to its task and fulfils the
// matching waiter. Unknown uids and acknowledgements without a waiter are
// ignored: they belong to tasks nobody is waiting on.
func (c *Correlator) Confirm(ctx context.Context, uid string) {
	task, err := c.repo.GetTaskByUID(ctx, uid)
	if err != nil {
		c.logger.Warn("Confirmation for unknown task", zap.String("uid", uid))
		return
	}

	c.mu.Lock()
	w, ok := c.waiters[task.ID]
	if ok {
		delete(c.waiters, task.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Info("Confirmation without waiter",
			zap.String("uid", uid),
			zap.Int64("task_id", task.ID),
		)
		return
	}

	w.ch <- task
}

// Waiting reports how many callers are currently blocked.
func (c *Correlator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters)
}
