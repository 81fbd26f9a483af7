package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/avoronin/corpusqa/internal/core/domain"
	"github.com/avoronin/corpusqa/internal/core/ports"
	"github.com/avoronin/corpusqa/internal/observability/metrics"
)

// backendPinger is what the health endpoint needs from the search backend.
type backendPinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Service          string
	DefaultTopK      int
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	InFlightWaitTime time.Duration
}

type Router struct {
	answerer ports.QuestionAnswerer
	trigger  ports.IngestTrigger
	backend  backendPinger
	metrics  *metrics.HTTPServerMetrics
	cfg      Config
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	trigger ports.IngestTrigger,
	backend backendPinger,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg Config,
) *Router {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.InFlightWaitTime <= 0 {
		cfg.InFlightWaitTime = 100 * time.Millisecond
	}
	return &Router{
		answerer: answerer,
		trigger:  trigger,
		backend:  backend,
		metrics:  serverMetrics,
		cfg:      cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/ingest", rt.triggerIngest)
	mux.HandleFunc("/v1/ingest/runs/", rt.getIngestRun)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.InFlightWaitTime)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.Service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

// healthz reports ready only when the search backend answers; the API is
// useless without it.
func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if err := rt.backend.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
	K        int    `json:"k"`
}

type citation struct {
	Filename    string  `json:"filename"`
	Snippet     string  `json:"snippet"`
	ResourceURL string  `json:"resource_url,omitempty"`
	Page        int     `json:"page,omitempty"`
	Score       float64 `json:"score"`
}

type queryResponse struct {
	Answer    string     `json:"answer"`
	Citations []citation `json:"citations"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	mode, err := domain.ParseRetrievalMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	k := req.K
	if k <= 0 {
		k = rt.cfg.DefaultTopK
	}

	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), req.Question, mode, k)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery(rt.cfg.Service, string(mode), len(answer.Passages), time.Since(start))
	}

	writeJSON(w, http.StatusOK, toQueryResponse(answer))
}

func toQueryResponse(answer *domain.Answer) queryResponse {
	citations := make([]citation, 0, len(answer.Passages))
	for _, p := range answer.Passages {
		citations = append(citations, citation{
			Filename:    p.Metadata.Filename,
			Snippet:     snippet(p.Text),
			ResourceURL: p.Metadata.ResourceURL,
			Page:        p.Metadata.Page,
			Score:       p.Score,
		})
	}
	return queryResponse{
		Answer:    answer.Text,
		Citations: citations,
	}
}

const maxSnippetRunes = 240

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSnippetRunes {
		return text
	}
	return string(runes[:maxSnippetRunes]) + "…"
}

func (rt *Router) triggerIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	run, err := rt.trigger.Trigger(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordIngestTrigger(rt.cfg.Service)
	}

	writeJSON(w, http.StatusAccepted, run)
}

func (rt *Router) getIngestRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/ingest/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	run, err := rt.trigger.GetRun(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
