package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

func TestRetrieveElserOnlyIssuesSparseQueryOnly(t *testing.T) {
	embedder := &fakeEmbedder{dims: 4}
	index := &fakeSearchIndex{
		sparseResult: []domain.Passage{passage("doc.txt", 0, "hit")},
	}
	uc := NewRetrieveUseCase(embedder, index, RetrieveConfig{}, discardLogger())

	got := uc.Retrieve(context.Background(), "question", domain.ModeElserOnly, 5)

	if len(got) != 1 {
		t.Fatalf("passages = %d, want 1", len(got))
	}
	if embedder.queryCalls != 0 {
		t.Errorf("query embedded %d times, want 0 in elser_only mode", embedder.queryCalls)
	}
	if index.sparseCalls != 1 {
		t.Errorf("sparse searches = %d, want 1", index.sparseCalls)
	}
	if index.hybridCalls+index.denseCalls+index.lexicalCalls != 0 {
		t.Errorf("issued non-sparse searches in elser_only mode")
	}
}

func TestRetrieveHybridBackendStrategy(t *testing.T) {
	embedder := &fakeEmbedder{dims: 4}
	index := &fakeSearchIndex{
		hybridResult: []domain.Passage{passage("doc.txt", 0, "hit")},
	}
	uc := NewRetrieveUseCase(embedder, index, RetrieveConfig{Strategy: FusionBackend}, discardLogger())

	got := uc.Retrieve(context.Background(), "question", domain.ModeHybrid, 5)

	if len(got) != 1 {
		t.Fatalf("passages = %d, want 1", len(got))
	}
	if embedder.queryCalls != 1 {
		t.Errorf("query embedded %d times, want 1", embedder.queryCalls)
	}
	if index.hybridCalls != 1 {
		t.Errorf("hybrid searches = %d, want 1", index.hybridCalls)
	}
	if index.denseCalls+index.lexicalCalls+index.sparseCalls != 0 {
		t.Errorf("backend strategy issued separate sub-searches")
	}
}

func TestRetrieveHybridClientStrategyFuses(t *testing.T) {
	embedder := &fakeEmbedder{dims: 4}
	index := &fakeSearchIndex{
		denseResult:   []domain.Passage{passage("a.txt", 0, "shared"), passage("a.txt", 1, "dense only")},
		lexicalResult: []domain.Passage{passage("a.txt", 0, "shared")},
		sparseResult:  []domain.Passage{passage("a.txt", 0, "shared"), passage("b.txt", 7, "sparse only")},
	}
	uc := NewRetrieveUseCase(embedder, index, RetrieveConfig{
		Strategy:     FusionClient,
		RankConstant: 20,
		WindowSize:   100,
	}, discardLogger())

	got := uc.Retrieve(context.Background(), "question", domain.ModeHybrid, 2)

	if len(got) != 2 {
		t.Fatalf("passages = %d, want 2 (trimmed to k)", len(got))
	}
	if got[0].Metadata.Filename != "a.txt" || got[0].Metadata.ChunkID != 0 {
		t.Errorf("top passage = %s#%d, want a.txt#0", got[0].Metadata.Filename, got[0].Metadata.ChunkID)
	}
	if index.denseCalls != 1 || index.lexicalCalls != 1 || index.sparseCalls != 1 {
		t.Errorf("sub-search calls dense=%d lexical=%d sparse=%d, want 1 each",
			index.denseCalls, index.lexicalCalls, index.sparseCalls)
	}
	if index.hybridCalls != 0 {
		t.Errorf("client strategy used the backend rrf call")
	}
}

func TestRetrieveBackendErrorYieldsEmptySlice(t *testing.T) {
	tests := []struct {
		name  string
		index *fakeSearchIndex
		emb   *fakeEmbedder
		mode  domain.RetrievalMode
	}{
		{
			name:  "hybrid search fails",
			index: &fakeSearchIndex{hybridErr: errors.New("boom")},
			emb:   &fakeEmbedder{dims: 4},
			mode:  domain.ModeHybrid,
		},
		{
			name:  "sparse search fails",
			index: &fakeSearchIndex{sparseErr: errors.New("boom")},
			emb:   &fakeEmbedder{dims: 4},
			mode:  domain.ModeElserOnly,
		},
		{
			name:  "query embedding fails",
			index: &fakeSearchIndex{},
			emb:   &fakeEmbedder{dims: 4, queryErr: errors.New("down")},
			mode:  domain.ModeHybrid,
		},
		{
			name:  "unknown mode",
			index: &fakeSearchIndex{},
			emb:   &fakeEmbedder{dims: 4},
			mode:  domain.RetrievalMode("bm42"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uc := NewRetrieveUseCase(tc.emb, tc.index, RetrieveConfig{}, discardLogger())
			got := uc.Retrieve(context.Background(), "question", tc.mode, 5)
			if got == nil {
				t.Fatal("result is nil, want empty slice")
			}
			if len(got) != 0 {
				t.Fatalf("passages = %d, want 0", len(got))
			}
		})
	}
}

func TestRetrieveClientStrategySubSearchErrorDegrades(t *testing.T) {
	index := &fakeSearchIndex{
		denseResult:  []domain.Passage{passage("a.txt", 0, "x")},
		sparseResult: []domain.Passage{passage("a.txt", 0, "x")},
		lexicalErr:   errors.New("shard failure"),
	}
	uc := NewRetrieveUseCase(&fakeEmbedder{dims: 4}, index, RetrieveConfig{Strategy: FusionClient}, discardLogger())

	got := uc.Retrieve(context.Background(), "question", domain.ModeHybrid, 5)
	if len(got) != 0 {
		t.Fatalf("passages = %d, want 0 when any sub-search fails", len(got))
	}
}

func TestRetrieveDefaultsKWhenNonPositive(t *testing.T) {
	index := &fakeSearchIndex{
		sparseResult: make([]domain.Passage, 8),
	}
	uc := NewRetrieveUseCase(&fakeEmbedder{dims: 4}, index, RetrieveConfig{}, discardLogger())

	got := uc.Retrieve(context.Background(), "question", domain.ModeElserOnly, 0)
	// The fake ignores k; the call itself must still go through with the
	// defaulted size rather than zero.
	if index.sparseCalls != 1 {
		t.Fatalf("sparse searches = %d, want 1", index.sparseCalls)
	}
	if len(got) != 8 {
		t.Fatalf("passages = %d, want 8", len(got))
	}
}
