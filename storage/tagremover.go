package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TagRemoveRequest asks for temporary tags to be cleared from committed
// objects of one bucket.
type TagRemoveRequest struct {
	Bucket      string
	Objectnames []string
}

// TagRemover clears temporary tags asynchronously. Removal is retried once
// after a fixed backoff; permanent failure leaves the object reapable by
// the bucket lifecycle sweep and is only logged.
type TagRemover struct {
	gateway *Gateway
	logger  *zap.Logger
	backoff time.Duration

	requests chan TagRemoveRequest
	wg       sync.WaitGroup
}

func NewTagRemover(gateway *Gateway, logger *zap.Logger) *TagRemover {
	return &TagRemover{
		gateway:  gateway,
		logger:   logger,
		backoff:  time.Second,
		requests: make(chan TagRemoveRequest, 64),
	}
}

// Start launches the remover loop. Stop it by cancelling ctx; Wait drains
// in-flight removals.
func (r *TagRemover) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case req := <-r.requests:
				r.process(ctx, req)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *TagRemover) Wait() {
	r.wg.Wait()
}

// Schedule enqueues tag removal without blocking the pipeline.
func (r *TagRemover) Schedule(req TagRemoveRequest) {
	select {
	case r.requests <- req:
	default:
		// Queue full under storage-backend degradation: fall back to a
		// synchronous attempt so commits are never silently dropped.
		r.process(context.Background(), req)
	}
}

func (r *TagRemover) process(ctx context.Context, req TagRemoveRequest) {
	for _, name := range req.Objectnames {
		if r.gateway.RemoveTemporaryTag(ctx, name, req.Bucket) {
			r.logger.Info("Removed temporary tag", zap.String("objectname", name))
			continue
		}

		r.logger.Warn("Retry temporary tag removal",
			zap.String("objectname", name),
			zap.Duration("backoff", r.backoff),
		)

		select {
		case <-time.After(r.backoff):
		case <-ctx.Done():
			return
		}

		if r.gateway.RemoveTemporaryTag(ctx, name, req.Bucket) {
			r.logger.Info("Removed temporary tag", zap.String("objectname", name))
			continue
		}

		r.logger.Error("Giving up temporary tag removal, object stays reapable",
			zap.String("objectname", name),
			zap.String("bucket", req.Bucket),
		)
	}
}
