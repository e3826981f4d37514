// Package bootstrap wires configuration, infrastructure and use cases
// into a runnable application shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarworks/submission-pipeline/internal/config"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
	"github.com/scholarworks/submission-pipeline/internal/core/usecase"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/classifier/rules"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/extractor/text"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/llm/openai"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/queue/nats"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/repository/postgres"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/resilience"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/scoring"
	"github.com/scholarworks/submission-pipeline/internal/infrastructure/source/drive"
	"github.com/scholarworks/submission-pipeline/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Store    *postgres.Store
	Advisory *openai.Classifier

	ProcessUC *usecase.ProcessSubmissionsUseCase
	ReportUC  *usecase.ReportUseCase

	PipelineMetrics *metrics.PipelineMetrics
	HTTPMetrics     *metrics.HTTPMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	source, err := drive.New(ctx, cfg.DriveCredentialsFile, logger)
	if err != nil {
		return nil, fmt.Errorf("init drive source: %w", err)
	}

	ruleSet := config.DefaultRuleSet()
	if cfg.RulesFile != "" {
		ruleSet, err = config.LoadRuleSet(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	// No scoring credentials selects the rule-based paths everywhere.
	var generator ports.TextGenerator
	if cfg.ScoringAPIKey != "" {
		generator = openai.New(cfg.ScoringBaseURL, cfg.ScoringAPIKey, cfg.ScoringModel, openai.WithExecutor(executor))
	}

	ruleClassifier := rules.New(ruleSet.Categories, logger)
	advisory := openai.NewClassifier(generator, ruleClassifier, cfg.PreviewLength, logger)
	scorer := scoring.NewScorer(ruleSet, generator, cfg.PreviewLength, cfg.DefaultMaxScore, logger)
	extractor := text.New(cfg.ExtractLength, logger)

	var publisher ports.EventPublisher
	closeQueue := func() {}
	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		publisher = queue
		closeQueue = queue.Close
	}

	pipelineMetrics := metrics.NewPipelineMetrics("worker")
	httpMetrics := metrics.NewHTTPMetrics("api")

	processUC := usecase.NewProcessSubmissionsUseCase(
		store, source, extractor, ruleClassifier, scorer, publisher, pipelineMetrics,
		usecase.ProcessConfig{
			ApplicantDelimiter: cfg.ApplicantDelimiter,
			Workers:            cfg.SubmissionWorkers,
		},
		logger,
	)
	reportUC := usecase.NewReportUseCase(store)

	return &App{
		Config: cfg,
		Logger: logger,

		Store:    store,
		Advisory: advisory,

		ProcessUC: processUC,
		ReportUC:  reportUC,

		PipelineMetrics: pipelineMetrics,
		HTTPMetrics:     httpMetrics,

		closeFn: func() {
			closeQueue()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
