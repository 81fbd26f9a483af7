package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avoronin/corpusqa/internal/config"
	"github.com/avoronin/corpusqa/internal/core/ports"
	"github.com/avoronin/corpusqa/internal/core/usecase"
	"github.com/avoronin/corpusqa/internal/infrastructure/chunking"
	"github.com/avoronin/corpusqa/internal/infrastructure/llm/ollama"
	"github.com/avoronin/corpusqa/internal/infrastructure/loader/gdrive"
	"github.com/avoronin/corpusqa/internal/infrastructure/loader/localdir"
	"github.com/avoronin/corpusqa/internal/infrastructure/queue/nats"
	"github.com/avoronin/corpusqa/internal/infrastructure/repository/postgres"
	"github.com/avoronin/corpusqa/internal/infrastructure/resilience"
	"github.com/avoronin/corpusqa/internal/infrastructure/search/elastic"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Index  *elastic.Client
	Ollama *ollama.Client
	Queue  ports.MessageQueue
	Runs   ports.RunStore

	AnswerUC  ports.QuestionAnswerer
	TriggerUC ports.IngestTrigger
	IngestUC  ports.CorpusIngestor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	runs := postgres.NewRunRepository(db)
	if err := runs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	index, err := elastic.New(elastic.Config{
		URL:            cfg.ElasticURL,
		CloudID:        cfg.ElasticCloudID,
		APIKey:         cfg.ElasticAPIKey,
		Index:          cfg.IndexName,
		VectorDims:     cfg.EmbeddingDims,
		ElserModelID:   cfg.ElserModelID,
		IngestPipeline: cfg.ElserPipeline,
		NumCandidates:  cfg.KNNNumCandidates,
		RankConstant:   cfg.RRFRankConstant,
		WindowSize:     cfg.RRFWindowSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init search index: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	loaders := []ports.DocumentLoader{
		localdir.New(cfg.LocalDataPath, log),
	}
	if cfg.DriveFolderID != "" {
		loaders = append(loaders, gdrive.New(cfg.DriveCredentialsPath, cfg.DriveFolderID, log))
	}

	retrieveUC := usecase.NewRetrieveUseCase(embedder, index, usecase.RetrieveConfig{
		Strategy:     usecase.ParseFusionStrategy(cfg.FusionStrategy),
		RankConstant: cfg.RRFRankConstant,
		WindowSize:   cfg.RRFWindowSize,
	}, log)
	answerUC := usecase.NewAnswerUseCase(retrieveUC, generator)
	triggerUC := usecase.NewTriggerIngestUseCase(runs, queue)
	ingestUC := usecase.NewIngestCorpusUseCase(loaders, chunker, embedder, index, runs, log)

	return &App{
		Config: cfg,
		Log:    log,

		Index:  index,
		Ollama: ollamaClient,
		Queue:  queue,
		Runs:   runs,

		AnswerUC:  answerUC,
		TriggerUC: triggerUC,
		IngestUC:  ingestUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// VerifyBackends fails fast when the search index or the embedder is
// unreachable. The worker calls this before accepting any run; the API
// stays up regardless and reports through /healthz instead.
func (a *App) VerifyBackends(ctx context.Context) error {
	if err := a.Index.Ping(ctx); err != nil {
		return fmt.Errorf("search backend unreachable: %w", err)
	}
	if err := a.Ollama.Healthcheck(ctx); err != nil {
		return fmt.Errorf("embedder unreachable: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
