package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avoronin/corpusqa/internal/core/domain"
	"github.com/avoronin/corpusqa/internal/core/ports"
)

func newIngestUseCase(loaders []ports.DocumentLoader, index *fakeSearchIndex, runs *fakeRunStore, emb *fakeEmbedder) *IngestCorpusUseCase {
	chunker := fixedChunker{pieces: func(text string) []string {
		if text == "" {
			return nil
		}
		return strings.Split(text, "|")
	}}
	return NewIngestCorpusUseCase(loaders, chunker, emb, index, runs, discardLogger())
}

func TestIngestRunHappyPath(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "local:./data", result: domain.LoadResult{
			Documents: []domain.RawDocument{
				{Content: "one|two", SourcePath: "/data/a.txt"},
				{Content: "three", SourcePath: "/data/b.txt"},
			},
			SkippedFiles: 1,
		}},
	}
	index := &fakeSearchIndex{}
	runs := &fakeRunStore{}
	uc := newIngestUseCase(loaders, index, runs, &fakeEmbedder{dims: 4})

	counts, err := uc.Run(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counts.DocumentsLoaded != 2 || counts.ChunksIndexed != 3 || counts.FilesSkipped != 1 {
		t.Errorf("counts = %+v", counts)
	}

	if len(runs.running) != 1 || runs.running[0] != "run-1" {
		t.Errorf("running marks = %v", runs.running)
	}
	if len(runs.finished) != 1 || runs.finished[0].status != domain.RunCompleted {
		t.Fatalf("finished = %+v", runs.finished)
	}

	wantOrder := []string{"ensure", "bulk", "refresh"}
	if len(index.calls) != len(wantOrder) {
		t.Fatalf("index calls = %v", index.calls)
	}
	for i, call := range wantOrder {
		if index.calls[i] != call {
			t.Fatalf("index calls = %v, want %v", index.calls, wantOrder)
		}
	}
}

func TestIngestAssignsGlobalAscendingChunkIDs(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "src", result: domain.LoadResult{
			Documents: []domain.RawDocument{
				{Content: "a|b", SourcePath: "/data/first.txt"},
				{Content: "c|d|e", SourcePath: "/data/second.txt"},
			},
		}},
	}
	index := &fakeSearchIndex{}
	uc := newIngestUseCase(loaders, index, &fakeRunStore{}, &fakeEmbedder{dims: 4})

	if _, err := uc.Run(context.Background(), "run-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(index.bulkDocs) != 5 {
		t.Fatalf("indexed %d docs, want 5", len(index.bulkDocs))
	}
	for i, doc := range index.bulkDocs {
		if doc.Metadata.ChunkID != i {
			t.Errorf("doc %d has chunk_id %d", i, doc.Metadata.ChunkID)
		}
	}
	if index.bulkDocs[1].Metadata.Filename != "first.txt" {
		t.Errorf("chunk 1 filename = %q", index.bulkDocs[1].Metadata.Filename)
	}
	if index.bulkDocs[2].Metadata.Filename != "second.txt" {
		t.Errorf("chunk 2 filename = %q", index.bulkDocs[2].Metadata.Filename)
	}
}

func TestIngestNormalizesRemoteMetadata(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "drive", result: domain.LoadResult{
			Documents: []domain.RawDocument{
				{Content: "remote text", RemoteFileID: "abc123", Title: "Quarterly Notes"},
			},
		}},
	}
	index := &fakeSearchIndex{}
	uc := newIngestUseCase(loaders, index, &fakeRunStore{}, &fakeEmbedder{dims: 4})

	if _, err := uc.Run(context.Background(), "run-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(index.bulkDocs) != 1 {
		t.Fatalf("indexed %d docs", len(index.bulkDocs))
	}
	meta := index.bulkDocs[0].Metadata
	if meta.Filename != "Quarterly Notes" {
		t.Errorf("filename = %q", meta.Filename)
	}
	if meta.ResourceURL != "https://docs.google.com/document/d/abc123/" {
		t.Errorf("resource_url = %q", meta.ResourceURL)
	}
}

func TestIngestSkipsDeadSourceAndContinues(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "drive", err: errors.New("credentials missing")},
		&fakeLoader{name: "local", result: domain.LoadResult{
			Documents: []domain.RawDocument{{Content: "survivor", SourcePath: "/data/a.txt"}},
		}},
	}
	index := &fakeSearchIndex{}
	runs := &fakeRunStore{}
	uc := newIngestUseCase(loaders, index, runs, &fakeEmbedder{dims: 4})

	counts, err := uc.Run(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counts.DocumentsLoaded != 1 || counts.ChunksIndexed != 1 {
		t.Errorf("counts = %+v", counts)
	}
	if runs.finished[0].status != domain.RunCompleted {
		t.Errorf("status = %q", runs.finished[0].status)
	}
}

func TestIngestEmptyCorpusStopsEarlyWithoutFailing(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "drive", err: errors.New("unreachable")},
	}
	index := &fakeSearchIndex{}
	runs := &fakeRunStore{}
	uc := newIngestUseCase(loaders, index, runs, &fakeEmbedder{dims: 4})

	counts, err := uc.Run(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counts.DocumentsLoaded != 0 || counts.ChunksIndexed != 0 {
		t.Errorf("counts = %+v", counts)
	}
	if len(index.calls) != 0 {
		t.Errorf("index was touched: %v", index.calls)
	}
	if runs.finished[0].status != domain.RunCompleted {
		t.Errorf("status = %q, want completed on empty corpus", runs.finished[0].status)
	}
}

func TestIngestEmbedFailureFailsRun(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "local", result: domain.LoadResult{
			Documents: []domain.RawDocument{{Content: "text", SourcePath: "/data/a.txt"}},
		}},
	}
	index := &fakeSearchIndex{}
	runs := &fakeRunStore{}
	uc := newIngestUseCase(loaders, index, runs, &fakeEmbedder{dims: 4, embedErr: errors.New("embedder down")})

	if _, err := uc.Run(context.Background(), "run-1"); err == nil {
		t.Fatal("expected embed failure to fail the run")
	}
	if len(runs.finished) != 1 || runs.finished[0].status != domain.RunFailed {
		t.Fatalf("finished = %+v", runs.finished)
	}
	if runs.finished[0].errMsg == "" {
		t.Error("failed run has no error message")
	}
	for _, call := range index.calls {
		if call == "bulk" || call == "refresh" {
			t.Errorf("index written after embed failure: %v", index.calls)
		}
	}
}

func TestIngestVectorCountMismatchFailsRun(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "local", result: domain.LoadResult{
			Documents: []domain.RawDocument{{Content: "a|b", SourcePath: "/data/a.txt"}},
		}},
	}
	emb := &fakeEmbedder{batches: [][][]float32{{{0.1}}}} // 1 vector for 2 chunks
	runs := &fakeRunStore{}
	uc := newIngestUseCase(loaders, &fakeSearchIndex{}, runs, emb)

	_, err := uc.Run(context.Background(), "run-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput kind", err)
	}
	if runs.finished[0].status != domain.RunFailed {
		t.Errorf("status = %q", runs.finished[0].status)
	}
}

func TestIngestBulkFailureFailsRun(t *testing.T) {
	loaders := []ports.DocumentLoader{
		&fakeLoader{name: "local", result: domain.LoadResult{
			Documents: []domain.RawDocument{{Content: "text", SourcePath: "/data/a.txt"}},
		}},
	}
	index := &fakeSearchIndex{bulkErr: errors.New("partial bulk rejection")}
	runs := &fakeRunStore{}
	uc := newIngestUseCase(loaders, index, runs, &fakeEmbedder{dims: 4})

	if _, err := uc.Run(context.Background(), "run-1"); err == nil {
		t.Fatal("expected bulk failure to fail the run")
	}
	if index.refreshCalls != 0 {
		t.Error("refreshed after failed bulk write")
	}
	if runs.finished[0].status != domain.RunFailed {
		t.Errorf("status = %q", runs.finished[0].status)
	}
}
