package cache

import (
	"context"
	"errors"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// Warm derives all listed identities with bounded parallelism. Resolution
// failures are logged and skipped so one unreachable compound does not
// abort a batch; cancellation of ctx stops the batch.
func (c *Cache) Warm(ctx context.Context, ids []string) {
	pool := pond.NewPool(c.opts.WarmParallelism)
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, id := range ids {
		group.Submit(func() {
			if _, err := c.Get(groupCtx, id); err != nil {
				c.logger.Warn("Skipping compound during cache warm",
					zap.String("id", id), zap.Error(err))
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		c.logger.Warn("Cache warm finished with error", zap.Error(err))
	}
}
