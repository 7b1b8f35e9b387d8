package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// Event is one typed progress notification published after each funnel
// stage. Err is non-nil when the stage aborted the run.
type Event struct {
	RunID    string
	DateKey  string
	Stage    RunStatus
	Duration time.Duration
	Err      error
}

// Observer receives stage events as the run progresses. Observers must not
// block; the orchestrator calls them synchronously between stages.
type Observer func(Event)

// LogObserver is the default observer: structured stage logging through the
// global logger.
func LogObserver() Observer {
	return func(e Event) {
		fields := []zap.Field{
			zap.String("run_id", e.RunID),
			zap.String("date", e.DateKey),
			zap.String("stage", string(e.Stage)),
			zap.Int64("duration_ms", e.Duration.Milliseconds()),
		}
		if e.Err != nil {
			zap.L().Error("pipeline: stage failed", append(fields, zap.Error(e.Err))...)
			return
		}
		zap.L().Info("pipeline: stage complete", fields...)
	}
}
