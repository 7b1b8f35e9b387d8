package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/newswatch/internal/checkpoint"
)

// buildCheckpointStore assembles the tiered snapshot store: object storage
// primary when a bucket is configured, sqlite archive always. The caller
// owns closing the returned local store.
func buildCheckpointStore(ctx context.Context) (checkpoint.Store, *checkpoint.LocalStore, error) {
	local, err := checkpoint.NewLocalStore(cfg.Checkpoint.LocalPath)
	if err != nil {
		return nil, nil, err
	}

	tiered := &checkpoint.Tiered{Secondary: local}
	if cfg.Checkpoint.Bucket != "" {
		primary, err := checkpoint.NewS3Store(ctx, cfg.Checkpoint.Bucket, cfg.Checkpoint.Prefix, cfg.Checkpoint.Region)
		if err != nil {
			zap.L().Warn("checkpoint: object storage unavailable, running on local archive only", zap.Error(err))
		} else {
			tiered.Primary = primary
		}
	} else {
		zap.L().Warn("checkpoint: no bucket configured, running on local archive only")
	}

	return tiered, local, nil
}
