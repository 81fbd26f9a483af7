package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avoronin/corpusqa/internal/core/domain"
	"github.com/avoronin/corpusqa/internal/core/ports"
)

// TriggerIngestUseCase starts an ingestion run without waiting for it: it
// records the run and hands the id to the worker over the queue. Nothing
// guards against overlapping runs; that is the operator's call.
type TriggerIngestUseCase struct {
	runs  ports.RunStore
	queue ports.MessageQueue
}

func NewTriggerIngestUseCase(runs ports.RunStore, queue ports.MessageQueue) *TriggerIngestUseCase {
	return &TriggerIngestUseCase{
		runs:  runs,
		queue: queue,
	}
}

func (uc *TriggerIngestUseCase) Trigger(ctx context.Context) (*domain.IngestRun, error) {
	now := time.Now().UTC()
	run := &domain.IngestRun{
		ID:        uuid.NewString(),
		Status:    domain.RunQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create ingest run: %w", err)
	}

	if err := uc.queue.PublishIngestRequested(ctx, run.ID); err != nil {
		// The run would never leave "queued" otherwise.
		_ = uc.runs.MarkFinished(ctx, run.ID, domain.RunFailed, domain.RunCounts{}, "trigger publish failed")
		return nil, fmt.Errorf("publish ingest trigger: %w", err)
	}

	return run, nil
}

func (uc *TriggerIngestUseCase) GetRun(ctx context.Context, id string) (*domain.IngestRun, error) {
	return uc.runs.GetRun(ctx, id)
}
