package elastic

import (
	"context"
	"net/http"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

type searchHit struct {
	Score  *float64 `json:"_score"`
	Source struct {
		TextContent string               `json:"text_content"`
		Metadata    domain.ChunkMetadata `json:"metadata"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// SearchHybrid issues one search combining knn over the dense vectors with
// lexical match and sparse text-expansion sub-searches, fused server-side by
// the rrf rank directive.
func (c *Client) SearchHybrid(ctx context.Context, queryText string, queryVector []float32, k int) ([]domain.Passage, error) {
	body := map[string]any{
		"knn": map[string]any{
			"field":          "vector_field",
			"query_vector":   queryVector,
			"k":              k,
			"num_candidates": c.numCandidates(k),
		},
		"sub_searches": []map[string]any{
			{
				"query": map[string]any{
					"match": map[string]any{
						"text_content": queryText,
					},
				},
			},
			{
				"query": c.textExpansionQuery(queryText),
			},
		},
		"rank": map[string]any{
			"rrf": map[string]any{
				"rank_constant":    c.cfg.RankConstant,
				"rank_window_size": c.cfg.WindowSize,
			},
		},
		"size": k,
	}
	return c.search(ctx, body)
}

// SearchSparse queries only the ELSER text-expansion field.
func (c *Client) SearchSparse(ctx context.Context, queryText string, k int) ([]domain.Passage, error) {
	body := map[string]any{
		"query": c.textExpansionQuery(queryText),
		"size":  k,
	}
	return c.search(ctx, body)
}

// SearchDense runs a pure knn query, used by client-side fusion.
func (c *Client) SearchDense(ctx context.Context, queryVector []float32, k int) ([]domain.Passage, error) {
	body := map[string]any{
		"knn": map[string]any{
			"field":          "vector_field",
			"query_vector":   queryVector,
			"k":              k,
			"num_candidates": c.numCandidates(k),
		},
		"size": k,
	}
	return c.search(ctx, body)
}

// SearchLexical runs a plain BM25 match, used by client-side fusion.
func (c *Client) SearchLexical(ctx context.Context, queryText string, k int) ([]domain.Passage, error) {
	body := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"text_content": queryText,
			},
		},
		"size": k,
	}
	return c.search(ctx, body)
}

func (c *Client) textExpansionQuery(queryText string) map[string]any {
	return map[string]any{
		"text_expansion": map[string]any{
			"elser_embedding_field": map[string]any{
				"model_id":   c.cfg.ElserModelID,
				"model_text": queryText,
			},
		},
	}
}

// numCandidates never shrinks below k: the backend rejects knn requests
// where k exceeds the candidate pool.
func (c *Client) numCandidates(k int) int {
	if k > c.cfg.NumCandidates {
		return k
	}
	return c.cfg.NumCandidates
}

func (c *Client) search(ctx context.Context, body map[string]any) ([]domain.Passage, error) {
	var resp searchResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/"+c.index+"/_search", body, &resp); err != nil {
		return nil, err
	}

	passages := make([]domain.Passage, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		p := domain.Passage{
			Text:     hit.Source.TextContent,
			Metadata: hit.Source.Metadata,
		}
		if hit.Score != nil {
			p.Score = *hit.Score
		}
		passages = append(passages, p)
	}
	return passages, nil
}
