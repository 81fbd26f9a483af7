package ports

import (
	"context"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

// PassageRetriever is the inbound contract of the hybrid retrieval engine.
// Backend failures degrade to an empty slice, never to an error.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string, mode domain.RetrievalMode, k int) []domain.Passage
}

// QuestionAnswerer turns a question into a grounded answer with citations.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, mode domain.RetrievalMode, k int) (*domain.Answer, error)
}

// IngestTrigger starts a background ingestion run and reads run state.
type IngestTrigger interface {
	Trigger(ctx context.Context) (*domain.IngestRun, error)
	GetRun(ctx context.Context, id string) (*domain.IngestRun, error)
}

// CorpusIngestor executes one full ingestion run to completion.
type CorpusIngestor interface {
	Run(ctx context.Context, runID string) (domain.RunCounts, error)
}
