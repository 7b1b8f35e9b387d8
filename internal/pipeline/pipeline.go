// Package pipeline implements the nightly news funnel: collect, headline
// dedup, category screening, body extraction, content dedup, value
// screening, impact analysis, and output composition, finishing with a
// durable checkpoint for the later delivery run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newswatch/internal/checkpoint"
	"github.com/sells-group/newswatch/internal/config"
	"github.com/sells-group/newswatch/internal/model"
	"github.com/sells-group/newswatch/internal/similarity"
	"github.com/sells-group/newswatch/pkg/anthropic"
)

// RunStatus is the orchestrator's coarse progress state.
type RunStatus string

const (
	StatusCollecting  RunStatus = "collecting"
	StatusDeduping    RunStatus = "deduping"
	StatusClassifying RunStatus = "classifying"
	StatusFetching    RunStatus = "fetching"
	StatusValidating  RunStatus = "validating"
	StatusAnalyzing   RunStatus = "analyzing"
	StatusComposing     RunStatus = "composing"
	StatusCheckpointing RunStatus = "checkpointing"
	StatusDone          RunStatus = "done"
	StatusFailed        RunStatus = "failed"
)

// Result is the outcome of one collect run.
type Result struct {
	RunID    string
	DateKey  string
	Status   RunStatus
	Analyses []model.ImpactAnalysis
	Messages []model.BriefMessage
	Partners []model.PartnerEntry
	Stats    model.RunStats
	Usage    anthropic.TokenUsage
}

// Pipeline orchestrates the funnel stages in strict sequence.
type Pipeline struct {
	cfg        *config.Config
	collector  *Collector
	engine     *similarity.Engine
	classifier *Classifier
	fetcher    *ContentFetcher
	validator  *Validator
	analyzer   *Analyzer
	composer   *Composer
	store      checkpoint.Store
	observer   Observer
	now        func() time.Time
}

// New creates a Pipeline with all stage dependencies.
func New(
	cfg *config.Config,
	collector *Collector,
	engine *similarity.Engine,
	classifier *Classifier,
	fetcher *ContentFetcher,
	validator *Validator,
	analyzer *Analyzer,
	composer *Composer,
	store checkpoint.Store,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		collector:  collector,
		engine:     engine,
		classifier: classifier,
		fetcher:    fetcher,
		validator:  validator,
		analyzer:   analyzer,
		composer:   composer,
		store:      store,
		observer:   LogObserver(),
		now:        time.Now,
	}
}

// SetObserver replaces the default logging observer. A nil observer
// silences progress events.
func (p *Pipeline) SetObserver(obs Observer) {
	p.observer = obs
}

// Run executes the full funnel for the prior day. Stages run strictly in
// order; each consumes only its predecessor's output. An empty stage output
// ends the run as Done with whatever the funnel produced so far; a stage
// error finalizes stats and returns the error with Status Failed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	_, _, dateKey := p.collector.Window()

	result := &Result{
		RunID:   uuid.NewString(),
		DateKey: dateKey,
	}
	result.Stats.RunID = result.RunID
	result.Stats.StartedAt = p.now()

	log := zap.L().With(
		zap.String("run_id", result.RunID),
		zap.String("date", dateKey),
	)
	log.Info("pipeline: starting run")

	trackStage := func(status RunStatus, fn func() error) error {
		result.Status = status
		start := p.now()
		err := fn()
		if p.observer != nil {
			p.observer(Event{
				RunID:    result.RunID,
				DateKey:  dateKey,
				Stage:    status,
				Duration: time.Since(start),
				Err:      err,
			})
		}
		return err
	}

	fail := func(err error) (*Result, error) {
		result.Status = StatusFailed
		result.Stats.Finalize(p.now())
		return result, err
	}

	// Stage 1: collection.
	var articles []model.Article
	if err := trackStage(StatusCollecting, func() error {
		var err error
		articles, err = p.collector.Collect(ctx)
		return err
	}); err != nil {
		return fail(err)
	}
	result.Stats.Collected = len(articles)
	if len(articles) == 0 {
		return p.finish(ctx, result, "no articles collected")
	}

	// Stage 2: headline dedup.
	if err := trackStage(StatusDeduping, func() error {
		articles = DedupHeadlines(ctx, p.engine, articles, p.cfg.Pipeline.HeadlineThreshold)
		return ctx.Err()
	}); err != nil {
		return fail(err)
	}
	result.Stats.AfterDedup1 = len(articles)

	// Stage 3: category screening.
	var passed []model.ClassificationVerdict
	if err := trackStage(StatusClassifying, func() error {
		verdicts, usage, err := p.classifier.Run(ctx, articles)
		result.Usage.Add(usage)
		if err != nil {
			return err
		}
		for _, v := range verdicts {
			if v.IsRegulatory() {
				result.Stats.RegulatoryFound++
			}
			if v.Passed {
				passed = append(passed, v)
			}
		}
		return nil
	}); err != nil {
		return fail(err)
	}
	result.Stats.AfterFilter = len(passed)
	if len(passed) == 0 {
		return p.finish(ctx, result, "no articles passed screening")
	}

	// Stage 4: body extraction, then content dedup.
	if err := trackStage(StatusFetching, func() error {
		passed = p.fetcher.Run(ctx, passed)
		passed = DedupContents(ctx, p.engine, passed, p.cfg.Pipeline.ContentThreshold)
		return ctx.Err()
	}); err != nil {
		return fail(err)
	}
	result.Stats.AfterDedup2 = len(passed)

	// Stage 5: value screening.
	var valued []model.ValueVerdict
	if err := trackStage(StatusValidating, func() error {
		verdicts, usage, err := p.validator.Run(ctx, passed)
		result.Usage.Add(usage)
		if err != nil {
			return err
		}
		for _, v := range verdicts {
			if v.HasValue {
				valued = append(valued, v)
			}
		}
		return nil
	}); err != nil {
		return fail(err)
	}
	result.Stats.AfterValidation = len(valued)
	if len(valued) == 0 {
		return p.finish(ctx, result, "no articles survived value screening")
	}

	// Stage 6: impact analysis.
	if err := trackStage(StatusAnalyzing, func() error {
		analyses, usage, err := p.analyzer.Run(ctx, valued)
		result.Usage.Add(usage)
		if err != nil {
			return err
		}
		result.Analyses = analyses
		return nil
	}); err != nil {
		return fail(err)
	}

	// Stage 7: output composition.
	if err := trackStage(StatusComposing, func() error {
		messages, partners, usage, err := p.composer.Run(ctx, result.Analyses)
		result.Usage.Add(usage)
		if err != nil {
			return err
		}
		result.Messages = messages
		result.Partners = partners
		return nil
	}); err != nil {
		return fail(err)
	}

	result.Stats.FinalOutput = len(result.Analyses)
	for _, a := range result.Analyses {
		if a.IsRegulatory {
			result.Stats.RegulatoryRetained++
		}
	}

	return p.finish(ctx, result, "")
}

// finish finalizes stats, writes the checkpoint, and marks the run Done.
// shortCircuit names the reason an empty funnel stage ended the run early.
func (p *Pipeline) finish(ctx context.Context, result *Result, shortCircuit string) (*Result, error) {
	result.Stats.Finalize(p.now())

	if shortCircuit != "" {
		zap.L().Warn("pipeline: run ended early",
			zap.String("run_id", result.RunID),
			zap.String("reason", shortCircuit),
		)
	}

	if p.store != nil {
		result.Status = StatusCheckpointing
		snap := &checkpoint.Snapshot{
			DateKey:     result.DateKey,
			RunID:       result.RunID,
			CollectedAt: p.now(),
			Analyses:    result.Analyses,
			Messages:    result.Messages,
			Partners:    result.Partners,
			Stats:       result.Stats,
		}
		if err := p.store.Write(ctx, snap); err != nil {
			result.Status = StatusFailed
			return result, eris.Wrap(err, "pipeline: write checkpoint")
		}
	}

	result.Status = StatusDone
	zap.L().Info("pipeline: run complete",
		zap.String("run_id", result.RunID),
		zap.Int("collected", result.Stats.Collected),
		zap.Int("after_dedup1", result.Stats.AfterDedup1),
		zap.Int("after_filter", result.Stats.AfterFilter),
		zap.Int("after_dedup2", result.Stats.AfterDedup2),
		zap.Int("after_validation", result.Stats.AfterValidation),
		zap.Int("final", result.Stats.FinalOutput),
		zap.Int("regulatory_found", result.Stats.RegulatoryFound),
		zap.Int("regulatory_retained", result.Stats.RegulatoryRetained),
	)
	return result, nil
}
