package ollama

import (
	"fmt"
	"strings"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

// buildAnswerPrompt grounds the model strictly in the retrieved passages.
// The refusal sentence is fixed so the HTTP layer and callers can rely on
// its exact wording.
func buildAnswerPrompt(question string, passages []domain.Passage) string {
	var contextBuilder strings.Builder
	for idx, p := range passages {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] file=%s score=%.3f\n%s\n\n",
			idx+1,
			p.Metadata.Filename,
			p.Score,
			p.Text,
		))
	}

	return fmt.Sprintf(`You are an assistant answering questions strictly from the provided context.
Use only the context below. Do not use outside knowledge.
If the context does not contain the answer, reply exactly:
I don't have enough information to answer that question.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}
