package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/avoronin/corpusqa/internal/core/domain"
	"github.com/avoronin/corpusqa/internal/core/ports"
)

const defaultEmbedBatchSize = 64

// IngestCorpusUseCase runs the full ingestion pipeline: load every source,
// chunk, normalize metadata, prepare the index, embed and bulk-write. Dead
// sources and unreadable files are skipped; the run only fails when the
// index or the embedder fails.
type IngestCorpusUseCase struct {
	loaders  []ports.DocumentLoader
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.SearchIndex
	runs     ports.RunStore
	log      *slog.Logger

	embedBatchSize int
}

func NewIngestCorpusUseCase(
	loaders []ports.DocumentLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.SearchIndex,
	runs ports.RunStore,
	log *slog.Logger,
) *IngestCorpusUseCase {
	return &IngestCorpusUseCase{
		loaders:        loaders,
		chunker:        chunker,
		embedder:       embedder,
		index:          index,
		runs:           runs,
		log:            log,
		embedBatchSize: defaultEmbedBatchSize,
	}
}

func (uc *IngestCorpusUseCase) Run(ctx context.Context, runID string) (domain.RunCounts, error) {
	if err := uc.runs.MarkRunning(ctx, runID); err != nil {
		return domain.RunCounts{}, fmt.Errorf("mark run running: %w", err)
	}

	counts, err := uc.pipeline(ctx)
	if err != nil {
		if failErr := uc.runs.MarkFinished(ctx, runID, domain.RunFailed, counts, err.Error()); failErr != nil {
			return counts, fmt.Errorf("%w; mark run failed: %v", err, failErr)
		}
		return counts, err
	}

	if err := uc.runs.MarkFinished(ctx, runID, domain.RunCompleted, counts, ""); err != nil {
		return counts, fmt.Errorf("mark run completed: %w", err)
	}
	return counts, nil
}

func (uc *IngestCorpusUseCase) pipeline(ctx context.Context) (domain.RunCounts, error) {
	var counts domain.RunCounts

	docs := make([]domain.RawDocument, 0, 64)
	for _, loader := range uc.loaders {
		result, err := loader.Load(ctx)
		if err != nil {
			// One dead source never aborts the others.
			uc.log.Warn("source_skipped", "source", loader.Name(), "error", err)
			continue
		}
		counts.FilesSkipped += result.SkippedFiles
		docs = append(docs, result.Documents...)
		uc.log.Info("source_loaded",
			"source", loader.Name(),
			"documents", len(result.Documents),
			"skipped_files", result.SkippedFiles,
		)
	}

	counts.DocumentsLoaded = len(docs)
	if len(docs) == 0 {
		// Early, non-fatal stop: nothing to index is not an error.
		uc.log.Warn("no_documents_loaded")
		return counts, nil
	}

	chunks := uc.chunkAll(docs)
	if len(chunks) == 0 {
		uc.log.Warn("chunking_produced_no_chunks", "documents", len(docs))
		return counts, nil
	}

	if err := uc.index.EnsureIndex(ctx); err != nil {
		return counts, fmt.Errorf("ensure index: %w", err)
	}

	indexed, err := uc.embedAll(ctx, chunks)
	if err != nil {
		return counts, err
	}

	if err := uc.index.BulkIndex(ctx, indexed); err != nil {
		return counts, fmt.Errorf("bulk index: %w", err)
	}
	if err := uc.index.Refresh(ctx); err != nil {
		return counts, fmt.Errorf("refresh index: %w", err)
	}

	counts.ChunksIndexed = len(indexed)
	uc.log.Info("ingestion_completed",
		"documents", counts.DocumentsLoaded,
		"chunks", counts.ChunksIndexed,
		"skipped_files", counts.FilesSkipped,
	)
	return counts, nil
}

// chunkAll assigns process-wide ascending chunk ids over the concatenated
// document list, so ordinals stay stable for a given input order.
func (uc *IngestCorpusUseCase) chunkAll(docs []domain.RawDocument) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(docs))
	nextID := 0
	for _, doc := range docs {
		for _, text := range uc.chunker.Split(doc.Content) {
			chunks = append(chunks, domain.Chunk{
				Text:     text,
				Metadata: normalizeMetadata(doc, nextID),
			})
			nextID++
		}
	}
	return chunks
}

func normalizeMetadata(doc domain.RawDocument, chunkID int) domain.ChunkMetadata {
	meta := domain.ChunkMetadata{
		ChunkID: chunkID,
		Page:    doc.Page,
	}
	if doc.SourcePath != "" {
		meta.Filename = filepath.Base(doc.SourcePath)
	}
	if doc.RemoteFileID != "" {
		if meta.Filename == "" {
			meta.Filename = doc.Title
		}
		meta.ResourceURL = driveDocumentURL(doc.RemoteFileID)
	}
	return meta
}

// driveDocumentURL is synthesized locally from the file id; no Drive call.
func driveDocumentURL(fileID string) string {
	return "https://docs.google.com/document/d/" + fileID + "/"
}

func (uc *IngestCorpusUseCase) embedAll(
	ctx context.Context,
	chunks []domain.Chunk,
) ([]domain.IndexedDocument, error) {
	batchSize := uc.embedBatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}

	out := make([]domain.IndexedDocument, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(texts)),
			)
		}

		for i, chunk := range chunks[start:end] {
			out = append(out, domain.IndexedDocument{
				TextContent: chunk.Text,
				VectorField: vectors[i],
				Metadata:    chunk.Metadata,
			})
		}
	}
	return out, nil
}
