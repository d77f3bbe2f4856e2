package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const progressTTL = time.Hour

// ProgressCache keeps per-batch percentage-complete hints in Redis so status
// polling does not rescan the batch. It is nil-safe: with no Redis client
// every call is a no-op and readers fall back to the database counts.
type ProgressCache struct {
	rdb *redis.Client
}

func NewProgressCache(rdb *redis.Client) *ProgressCache {
	return &ProgressCache{rdb: rdb}
}

func progressKey(batchID uint) string {
	return fmt.Sprintf("import:progress:%d", batchID)
}

func (p *ProgressCache) SetProgress(ctx context.Context, batchID uint, percent float64) {
	if p == nil || p.rdb == nil {
		return
	}
	// Progress hints are best-effort; a cache write failure never fails a batch.
	p.rdb.Set(ctx, progressKey(batchID), percent, progressTTL)
}

// GetProgress returns the cached percentage and whether a value was present.
func (p *ProgressCache) GetProgress(ctx context.Context, batchID uint) (float64, bool) {
	if p == nil || p.rdb == nil {
		return 0, false
	}
	val, err := p.rdb.Get(ctx, progressKey(batchID)).Float64()
	if err != nil {
		return 0, false
	}
	return val, true
}

func (p *ProgressCache) Clear(ctx context.Context, batchID uint) {
	if p == nil || p.rdb == nil {
		return
	}
	p.rdb.Del(ctx, progressKey(batchID))
}
