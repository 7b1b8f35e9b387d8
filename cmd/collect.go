package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newswatch/internal/extract"
	"github.com/sells-group/newswatch/internal/pipeline"
	"github.com/sells-group/newswatch/internal/ratelimit"
	"github.com/sells-group/newswatch/internal/similarity"
	anthropicpkg "github.com/sells-group/newswatch/pkg/anthropic"
	"github.com/sells-group/newswatch/pkg/cohere"
	"github.com/sells-group/newswatch/pkg/naver"
	"github.com/sells-group/newswatch/pkg/newsapi"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the nightly collection and analysis funnel",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var naverClient naver.Client
		if cfg.Naver.ClientID != "" {
			naverClient = naver.NewClient(cfg.Naver.ClientID, cfg.Naver.ClientSecret)
		}
		var newsAPIClient newsapi.Client
		if cfg.NewsAPI.Key != "" {
			newsAPIClient = newsapi.NewClient(cfg.NewsAPI.Key)
		}
		if naverClient == nil && newsAPIClient == nil {
			return eris.New("collect: no news provider configured")
		}

		collector, err := pipeline.NewCollector(naverClient, newsAPIClient, cfg.Collect)
		if err != nil {
			return err
		}

		store, local, err := buildCheckpointStore(ctx)
		if err != nil {
			return err
		}
		defer local.Close()

		embedder := cohere.NewClient(cfg.Cohere.Key,
			cohere.WithModel(cfg.Cohere.Model),
			cohere.WithDimension(cfg.Cohere.Dimension),
		)
		engine := similarity.NewEngine(embedder, cfg.Cohere.Dimension)

		aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		limiter := ratelimit.New(cfg.Pipeline.RateLimitPerMinute)
		workers := cfg.Pipeline.Workers()

		chain := extract.NewChain(cfg.Pipeline.MinContentChars,
			extract.NewReadability(),
			extract.NewSelectors(cfg.Pipeline.MinContentChars),
		)

		p := pipeline.New(
			cfg,
			collector,
			engine,
			pipeline.NewClassifier(aiClient, limiter, cfg.Anthropic.Model, workers),
			pipeline.NewContentFetcher(chain),
			pipeline.NewValidator(aiClient, limiter, cfg.Anthropic.Model, workers),
			pipeline.NewAnalyzer(aiClient, limiter, cfg.Anthropic.Model, workers),
			pipeline.NewComposer(aiClient, limiter, cfg.Anthropic.SummaryModel, workers),
			store,
		)

		result, err := p.Run(ctx)
		if err != nil {
			return err
		}

		if result.Stats.RetentionViolated() {
			return eris.Errorf("collect: regulatory retention violated: found %d, retained %d",
				result.Stats.RegulatoryFound, result.Stats.RegulatoryRetained)
		}
		if result.Stats.FinalOutput == 0 {
			zap.L().Warn("collect: run produced no output", zap.String("run_id", result.RunID))
			return eris.Errorf("collect: run %s produced no output items", result.RunID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
