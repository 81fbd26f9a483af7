package domain

import "fmt"

// RetrievalMode selects the ranking strategy for one query. The set is
// closed: adding a mode means adding a constant and a matching query builder,
// not branching deeper.
type RetrievalMode string

const (
	ModeHybrid    RetrievalMode = "hybrid"
	ModeElserOnly RetrievalMode = "elser_only"
)

// ParseRetrievalMode maps a request string to a mode. Empty input selects
// the hybrid default.
func ParseRetrievalMode(s string) (RetrievalMode, error) {
	switch RetrievalMode(s) {
	case "":
		return ModeHybrid, nil
	case ModeHybrid:
		return ModeHybrid, nil
	case ModeElserOnly:
		return ModeElserOnly, nil
	default:
		return "", fmt.Errorf("%w: unknown retrieval mode %q", ErrInvalidInput, s)
	}
}

// Passage is one ranked hit returned by the retrieval engine.
type Passage struct {
	Text     string        `json:"text"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Answer is the composed response plus the passages it was grounded on.
type Answer struct {
	Text     string    `json:"text"`
	Passages []Passage `json:"passages"`
}
