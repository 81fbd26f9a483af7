package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/avoronin/corpusqa/internal/core/domain"
	"github.com/avoronin/corpusqa/internal/core/ports"
)

// FusionStrategy picks where hybrid rank fusion happens: in the storage
// backend via its rrf directive, or in-process over the three ranked lists.
type FusionStrategy string

const (
	FusionBackend FusionStrategy = "backend"
	FusionClient  FusionStrategy = "client"
)

func ParseFusionStrategy(s string) FusionStrategy {
	if FusionStrategy(s) == FusionClient {
		return FusionClient
	}
	return FusionBackend
}

type RetrieveConfig struct {
	Strategy     FusionStrategy
	RankConstant int
	WindowSize   int
}

// RetrieveUseCase is the hybrid retrieval engine. Whatever goes wrong while
// querying, the caller sees an empty passage list and a log entry, never an
// error: the answer layer has a defined behavior for zero passages.
type RetrieveUseCase struct {
	embedder ports.Embedder
	index    ports.SearchIndex
	cfg      RetrieveConfig
	log      *slog.Logger
}

func NewRetrieveUseCase(
	embedder ports.Embedder,
	index ports.SearchIndex,
	cfg RetrieveConfig,
	log *slog.Logger,
) *RetrieveUseCase {
	if cfg.RankConstant <= 0 {
		cfg.RankConstant = 20
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}
	return &RetrieveUseCase{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		log:      log,
	}
}

func (uc *RetrieveUseCase) Retrieve(
	ctx context.Context,
	query string,
	mode domain.RetrievalMode,
	k int,
) []domain.Passage {
	if k <= 0 {
		k = 5
	}

	passages, err := uc.retrieve(ctx, query, mode, k)
	if err != nil {
		uc.log.Error("retrieval_failed", "mode", string(mode), "error", err)
		return []domain.Passage{}
	}
	if passages == nil {
		passages = []domain.Passage{}
	}
	return passages
}

func (uc *RetrieveUseCase) retrieve(
	ctx context.Context,
	query string,
	mode domain.RetrievalMode,
	k int,
) ([]domain.Passage, error) {
	switch mode {
	case domain.ModeElserOnly:
		return uc.index.SearchSparse(ctx, query, k)
	case domain.ModeHybrid, "":
		return uc.hybrid(ctx, query, k)
	default:
		return nil, fmt.Errorf("%w: retrieval mode %q", domain.ErrInvalidInput, mode)
	}
}

func (uc *RetrieveUseCase) hybrid(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if uc.cfg.Strategy == FusionClient {
		return uc.hybridClientFused(ctx, query, queryVector, k)
	}
	return uc.index.SearchHybrid(ctx, query, queryVector, k)
}

// hybridClientFused fetches the three ranked lists concurrently, each sized
// to the fusion window, and fuses them in-process. Used when the backend
// does not offer the rrf rank directive.
func (uc *RetrieveUseCase) hybridClientFused(
	ctx context.Context,
	query string,
	queryVector []float32,
	k int,
) ([]domain.Passage, error) {
	window := uc.cfg.WindowSize

	var (
		wg                      sync.WaitGroup
		dense, lexical, sparse  []domain.Passage
		denseErr, lexErr, spErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		dense, denseErr = uc.index.SearchDense(ctx, queryVector, window)
	}()
	go func() {
		defer wg.Done()
		lexical, lexErr = uc.index.SearchLexical(ctx, query, window)
	}()
	go func() {
		defer wg.Done()
		sparse, spErr = uc.index.SearchSparse(ctx, query, window)
	}()
	wg.Wait()

	if err := errors.Join(denseErr, lexErr, spErr); err != nil {
		return nil, fmt.Errorf("hybrid sub-search: %w", err)
	}

	fused := fusePassagesRRF(
		[][]domain.Passage{dense, lexical, sparse},
		uc.cfg.RankConstant,
		window,
	)
	return trimPassages(fused, k), nil
}
