package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/avoronin/corpusqa/internal/core/domain"
	"github.com/avoronin/corpusqa/internal/core/ports"
)

// NoGroundingAnswer is returned verbatim when retrieval produced zero
// passages. The model is never asked to compose an answer without context.
const NoGroundingAnswer = "I don't have enough information to answer that question."

type AnswerUseCase struct {
	retriever ports.PassageRetriever
	generator ports.AnswerGenerator
}

func NewAnswerUseCase(retriever ports.PassageRetriever, generator ports.AnswerGenerator) *AnswerUseCase {
	return &AnswerUseCase{
		retriever: retriever,
		generator: generator,
	}
}

func (uc *AnswerUseCase) Ask(
	ctx context.Context,
	question string,
	mode domain.RetrievalMode,
	k int,
) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	passages := uc.retriever.Retrieve(ctx, question, mode, k)
	if len(passages) == 0 {
		return &domain.Answer{
			Text:     NoGroundingAnswer,
			Passages: []domain.Passage{},
		}, nil
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:     text,
		Passages: passages,
	}, nil
}
