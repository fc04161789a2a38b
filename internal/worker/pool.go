package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// KeyPruner deletes idempotency keys saved before cutoff.
type KeyPruner interface {
	PruneIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor periodically drops expired idempotency keys so a retried create
// is only deduplicated within the key TTL.
type Janitor struct {
	keys     KeyPruner
	logger   *zap.Logger
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewJanitor(keys KeyPruner, logger *zap.Logger, interval, ttl time.Duration) *Janitor {
	return &Janitor{
		keys:     keys,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting idempotency key janitor",
		zap.Duration("interval", j.interval),
		zap.Duration("ttl", j.ttl),
	)
	j.wg.Add(1)
	go j.run(ctx)
}

// Stop waits for an in-flight sweep to finish. It is safe to call twice.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		j.logger.Info("Stopping idempotency key janitor...")
		close(j.stop)
	})
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.keys.PruneIdempotencyKeys(ctx, j.now().Add(-j.ttl))
	if err != nil {
		j.logger.Error("failed to prune idempotency keys", zap.Error(err))
		return
	}
	if n > 0 {
		j.logger.Info("Pruned idempotency keys", zap.Int64("count", n))
	}
}
