package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	dims       int
	embedCalls int
	queryCalls int
	embedErr   error
	queryErr   error
	// short-circuits Embed with an exact batch result when set
	batches [][][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		return batch, nil
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, max(f.dims, 1))
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return make([]float32, max(f.dims, 1)), nil
}

type fakeSearchIndex struct {
	pingErr    error
	ensureErr  error
	bulkErr    error
	refreshErr error

	hybridResult  []domain.Passage
	sparseResult  []domain.Passage
	denseResult   []domain.Passage
	lexicalResult []domain.Passage

	hybridErr  error
	sparseErr  error
	denseErr   error
	lexicalErr error

	hybridCalls  int
	sparseCalls  int
	denseCalls   int
	lexicalCalls int
	ensureCalls  int
	refreshCalls int

	bulkDocs []domain.IndexedDocument
	// order of mutating calls, for sequencing assertions
	calls []string
}

func (f *fakeSearchIndex) Ping(context.Context) error { return f.pingErr }

func (f *fakeSearchIndex) EnsureIndex(context.Context) error {
	f.ensureCalls++
	f.calls = append(f.calls, "ensure")
	return f.ensureErr
}

func (f *fakeSearchIndex) BulkIndex(_ context.Context, docs []domain.IndexedDocument) error {
	f.calls = append(f.calls, "bulk")
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.bulkDocs = append(f.bulkDocs, docs...)
	return nil
}

func (f *fakeSearchIndex) Refresh(context.Context) error {
	f.refreshCalls++
	f.calls = append(f.calls, "refresh")
	return f.refreshErr
}

func (f *fakeSearchIndex) SearchHybrid(_ context.Context, _ string, _ []float32, _ int) ([]domain.Passage, error) {
	f.hybridCalls++
	return f.hybridResult, f.hybridErr
}

func (f *fakeSearchIndex) SearchSparse(_ context.Context, _ string, _ int) ([]domain.Passage, error) {
	f.sparseCalls++
	return f.sparseResult, f.sparseErr
}

func (f *fakeSearchIndex) SearchDense(_ context.Context, _ []float32, _ int) ([]domain.Passage, error) {
	f.denseCalls++
	return f.denseResult, f.denseErr
}

func (f *fakeSearchIndex) SearchLexical(_ context.Context, _ string, _ int) ([]domain.Passage, error) {
	f.lexicalCalls++
	return f.lexicalResult, f.lexicalErr
}

type fakeRetriever struct {
	passages []domain.Passage
	calls    int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ domain.RetrievalMode, _ int) []domain.Passage {
	f.calls++
	return f.passages
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, _ string, _ []domain.Passage) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeRunStore struct {
	created    []*domain.IngestRun
	running    []string
	finished   []finishedRun
	createErr  error
	runningErr error
}

type finishedRun struct {
	id     string
	status domain.RunStatus
	counts domain.RunCounts
	errMsg string
}

func (f *fakeRunStore) CreateRun(_ context.Context, run *domain.IngestRun) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRunStore) GetRun(_ context.Context, id string) (*domain.IngestRun, error) {
	for _, run := range f.created {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, domain.ErrRunNotFound
}

func (f *fakeRunStore) MarkRunning(_ context.Context, id string) error {
	if f.runningErr != nil {
		return f.runningErr
	}
	f.running = append(f.running, id)
	return nil
}

func (f *fakeRunStore) MarkFinished(_ context.Context, id string, status domain.RunStatus, counts domain.RunCounts, errMsg string) error {
	f.finished = append(f.finished, finishedRun{id: id, status: status, counts: counts, errMsg: errMsg})
	return nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishIngestRequested(_ context.Context, runID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, runID)
	return nil
}

func (f *fakeQueue) SubscribeIngestRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeLoader struct {
	name   string
	result domain.LoadResult
	err    error
}

func (f *fakeLoader) Name() string { return f.name }

func (f *fakeLoader) Load(context.Context) (domain.LoadResult, error) {
	return f.result, f.err
}

type fixedChunker struct {
	pieces func(text string) []string
}

func (f fixedChunker) Split(text string) []string {
	if f.pieces != nil {
		return f.pieces(text)
	}
	if text == "" {
		return nil
	}
	return []string{text}
}
