package cache

import (
	"context"
	"fmt"
	"time"

	"msfiles/database"
	"msfiles/models"
)

const (
	statusKeyPrefix = "task:status:"
	statusTTL       = 10 * time.Minute
)

// StatusCache keeps the last known task status so status polls avoid the
// ledger on the hot path.
type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, taskID int64) (models.TaskStatus, error) {
	key := fmt.Sprintf("%s%d", statusKeyPrefix, taskID)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		return "", err
	}

	return models.TaskStatus(data), nil
}

func (sc *StatusCache) Set(ctx context.Context, taskID int64, status models.TaskStatus) error {
	key := fmt.Sprintf("%s%d", statusKeyPrefix, taskID)

	return sc.cache.Set(ctx, key, string(status), statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, taskID int64) error {
	key := fmt.Sprintf("%s%d", statusKeyPrefix, taskID)

	return sc.cache.Del(ctx, key)
}
