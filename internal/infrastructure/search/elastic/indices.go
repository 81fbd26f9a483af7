package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

// EnsureIndex creates the index with its full mapping when it does not exist
// yet. The mapping is part of the persisted contract; an existing index is
// left untouched.
func (c *Client) EnsureIndex(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/"+c.index, nil)
	if err != nil {
		return fmt.Errorf("create index check request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elastic index check request: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return c.createIndex(ctx)
	default:
		return fmt.Errorf("elastic index check status: %s", resp.Status)
	}
}

func (c *Client) createIndex(ctx context.Context) error {
	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"text_content": map[string]any{
					"type": "text",
				},
				"vector_field": map[string]any{
					"type":       "dense_vector",
					"dims":       c.cfg.VectorDims,
					"index":      true,
					"similarity": "cosine",
				},
				"elser_embedding_field": map[string]any{
					"type": "sparse_vector",
				},
				"metadata": map[string]any{
					"properties": map[string]any{
						"filename":     map[string]any{"type": "keyword"},
						"resource_url": map[string]any{"type": "keyword"},
						"chunk_id":     map[string]any{"type": "integer"},
						"page":         map[string]any{"type": "integer"},
					},
				},
			},
		},
	}
	if c.cfg.IngestPipeline != "" {
		mapping["settings"] = map[string]any{
			"index": map[string]any{
				"default_pipeline": c.cfg.IngestPipeline,
			},
		}
	}
	return c.sendJSON(ctx, http.MethodPut, "/"+c.index, mapping, nil)
}

// BulkIndex writes all documents in one _bulk call. Any item-level rejection
// fails the whole write; callers treat the batch as all-or-nothing.
func (c *Client) BulkIndex(ctx context.Context, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	action := map[string]any{"index": map[string]any{}}
	for _, doc := range docs {
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.index+"/_bulk", &buf)
	if err != nil {
		return fmt.Errorf("create bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elastic bulk request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("elastic bulk status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("elastic bulk status: %s", resp.Status)
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !bulkResp.Errors {
		return nil
	}

	for i, item := range bulkResp.Items {
		for _, result := range item {
			if result.Error != nil {
				return fmt.Errorf("elastic bulk item %d rejected: %s: %s",
					i, result.Error.Type, result.Error.Reason)
			}
		}
	}
	return fmt.Errorf("elastic bulk reported errors without item detail")
}

// Refresh makes everything written so far visible to search.
func (c *Client) Refresh(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/"+c.index+"/_refresh", nil, nil)
}
