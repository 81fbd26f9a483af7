package elastic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config carries the connection and query-shape settings for one index.
// Either URL or CloudID must be set; CloudID wins when both are present.
type Config struct {
	URL            string
	CloudID        string
	APIKey         string
	Index          string
	VectorDims     int
	ElserModelID   string
	IngestPipeline string
	NumCandidates  int
	RankConstant   int
	WindowSize     int
}

type Client struct {
	baseURL    string
	apiKey     string
	index      string
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.URL, "/")
	if cfg.CloudID != "" {
		resolved, err := endpointFromCloudID(cfg.CloudID)
		if err != nil {
			return nil, err
		}
		baseURL = resolved
	}
	if baseURL == "" {
		return nil, fmt.Errorf("elastic: no URL and no cloud id configured")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("elastic: index name is empty")
	}

	if cfg.ElserModelID == "" {
		cfg.ElserModelID = "elser"
	}
	if cfg.NumCandidates <= 0 {
		cfg.NumCandidates = 50
	}
	if cfg.RankConstant <= 0 {
		cfg.RankConstant = 20
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// endpointFromCloudID resolves an Elastic Cloud id of the form
// "name:base64(host$es_uuid$kb_uuid)" into the https endpoint of the
// Elasticsearch component.
func endpointFromCloudID(cloudID string) (string, error) {
	_, payload, found := strings.Cut(cloudID, ":")
	if !found {
		return "", fmt.Errorf("elastic: malformed cloud id")
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("elastic: decode cloud id: %w", err)
	}
	fields := strings.Split(string(decoded), "$")
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return "", fmt.Errorf("elastic: malformed cloud id payload")
	}
	return "https://" + fields[1] + "." + fields[0], nil
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elastic ping request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("elastic ping status: %s", resp.Status)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	}
}

// sendJSON issues one request with a JSON body and decodes the response into
// out when out is non-nil. Any non-2xx status is an error carrying the
// backend's message.
func (c *Client) sendJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elastic %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("elastic %s status: %s: %s", path, resp.Status, msg)
		}
		return fmt.Errorf("elastic %s status: %s", path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
