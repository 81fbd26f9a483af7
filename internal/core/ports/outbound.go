package ports

import (
	"context"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

// DocumentLoader reads one configured source into raw documents. An error
// means the whole source is unavailable; per-file problems are reported via
// LoadResult.SkippedFiles instead.
type DocumentLoader interface {
	Name() string
	Load(ctx context.Context) (domain.LoadResult, error)
}

// Chunker splits one document's text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds fixed-dimension vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchIndex is the storage backend surface: index administration on the
// ingestion side, one search call per ranking strategy on the query side.
type SearchIndex interface {
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context) error
	BulkIndex(ctx context.Context, docs []domain.IndexedDocument) error
	Refresh(ctx context.Context) error

	SearchHybrid(ctx context.Context, queryText string, queryVector []float32, k int) ([]domain.Passage, error)
	SearchSparse(ctx context.Context, queryText string, k int) ([]domain.Passage, error)
	SearchDense(ctx context.Context, queryVector []float32, k int) ([]domain.Passage, error)
	SearchLexical(ctx context.Context, queryText string, k int) ([]domain.Passage, error)
}

// AnswerGenerator composes the final user-facing answer from passages.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, passages []domain.Passage) (string, error)
}

// RunStore persists the ingestion run ledger.
type RunStore interface {
	CreateRun(ctx context.Context, run *domain.IngestRun) error
	GetRun(ctx context.Context, id string) (*domain.IngestRun, error)
	MarkRunning(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id string, status domain.RunStatus, counts domain.RunCounts, errMessage string) error
}

// MessageQueue carries ingestion triggers from the API to the worker.
type MessageQueue interface {
	PublishIngestRequested(ctx context.Context, runID string) error
	SubscribeIngestRequested(ctx context.Context, handler func(context.Context, string) error) error
}
