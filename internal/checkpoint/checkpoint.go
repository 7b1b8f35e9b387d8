// Package checkpoint implements the durable handoff between the collect
// and send runs: a date-keyed snapshot written to object storage, with a
// local archive as the fallback read path.
package checkpoint

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newswatch/internal/model"
)

// ErrNotFound signals that no snapshot exists for a date key. This is an
// expected outcome before the collect phase has run, not a failure.
var ErrNotFound = eris.New("checkpoint: not found")

// Snapshot is the full surviving set of one collect run.
type Snapshot struct {
	DateKey     string                 `json:"date_key"`
	RunID       string                 `json:"run_id"`
	CollectedAt time.Time              `json:"collected_at"`
	Analyses    []model.ImpactAnalysis `json:"analyses"`
	Messages    []model.BriefMessage   `json:"messages"`
	Partners    []model.PartnerEntry   `json:"partners"`
	Stats       model.RunStats         `json:"stats"`
}

// Store persists and retrieves snapshots. Writing twice for the same date
// key produces two timestamped objects; readers always get the most
// recently updated one.
type Store interface {
	Write(ctx context.Context, snap *Snapshot) error
	// ReadLatest returns the newest snapshot for dateKey, or ErrNotFound.
	ReadLatest(ctx context.Context, dateKey string) (*Snapshot, error)
}

// Tiered reads from the primary store and falls back to the secondary when
// the primary is absent or unreachable. Writes go to both; a secondary
// write failure is logged, not fatal.
type Tiered struct {
	Primary   Store
	Secondary Store
}

// Write implements Store. The snapshot is lost only when every configured
// store rejects it; that is always an error.
func (t *Tiered) Write(ctx context.Context, snap *Snapshot) error {
	var primaryErr error
	if t.Primary != nil {
		primaryErr = t.Primary.Write(ctx, snap)
		if primaryErr != nil {
			zap.L().Warn("checkpoint: primary write failed", zap.Error(primaryErr))
		}
	}
	if t.Secondary == nil {
		return primaryErr
	}
	if err := t.Secondary.Write(ctx, snap); err != nil {
		zap.L().Warn("checkpoint: secondary write failed", zap.Error(err))
		if primaryErr != nil {
			return eris.Wrap(primaryErr, "checkpoint: all stores failed")
		}
		if t.Primary == nil {
			return eris.Wrap(err, "checkpoint: all stores failed")
		}
	}
	return nil
}

// ReadLatest implements Store.
func (t *Tiered) ReadLatest(ctx context.Context, dateKey string) (*Snapshot, error) {
	if t.Primary != nil {
		snap, err := t.Primary.ReadLatest(ctx, dateKey)
		if err == nil {
			return snap, nil
		}
		if !eris.Is(err, ErrNotFound) {
			zap.L().Warn("checkpoint: primary read failed, trying local copy", zap.Error(err))
		}
	}
	if t.Secondary != nil {
		return t.Secondary.ReadLatest(ctx, dateKey)
	}
	return nil, ErrNotFound
}
