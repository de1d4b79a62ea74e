package service

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Cleanup removes temporary working directories off the pipeline path.
type Cleanup struct {
	logger *zap.Logger
	dirs   chan string
	wg     sync.WaitGroup
}

func NewCleanup(logger *zap.Logger) *Cleanup {
	return &Cleanup{
		logger: logger,
		dirs:   make(chan string, 64),
	}
}

func (c *Cleanup) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case dir := <-c.dirs:
				c.remove(dir)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Cleanup) Wait() {
	c.wg.Wait()
}

// Schedule queues a directory for removal; removes inline if the queue is
// full so temp space cannot grow unbounded.
func (c *Cleanup) Schedule(dir string) {
	if dir == "" {
		return
	}
	select {
	case c.dirs <- dir:
	default:
		c.remove(dir)
	}
}

func (c *Cleanup) remove(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		c.logger.Error("Failed to delete temp dir", zap.String("dir", dir), zap.Error(err))
		return
	}
	c.logger.Info("Deleted temp dir", zap.String("dir", dir))
}
