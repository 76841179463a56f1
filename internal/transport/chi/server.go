package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/domain"
	"github.com/memoir-labs/memoir/internal/logger"
	healthuc "github.com/memoir-labs/memoir/internal/usecase/health"
	memoryuc "github.com/memoir-labs/memoir/internal/usecase/memory"
	"github.com/memoir-labs/memoir/internal/usecase/pipeline"
	searchuc "github.com/memoir-labs/memoir/internal/usecase/search"
	usageuc "github.com/memoir-labs/memoir/internal/usecase/usage"
)

// userIDHeader identifies the end user on whose behalf the request is made.
// The bearer token authenticates the calling service, not the user.
const userIDHeader = "X-User-ID"

const maxBatchSize = 100

// IntentDetector resolves free text into a search intent.
type IntentDetector interface {
	DetectIntent(ctx context.Context, userInput string) domain.IntentResult
}

// Server wires the HTTP API onto the usecase services.
type Server struct {
	memories      *memoryuc.Service
	retrieval     *searchuc.Service
	pipe          *pipeline.Service
	intents       IntentDetector
	health        *healthuc.Service
	usage         *usageuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	memories *memoryuc.Service,
	retrieval *searchuc.Service,
	pipe *pipeline.Service,
	intents IntentDetector,
	health *healthuc.Service,
	usage *usageuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		memories:  memories,
		retrieval: retrieval,
		pipe:      pipe,
		intents:   intents,
		health:    health,
		usage:     usage,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMemoryNotFound, http.StatusNotFound, CodeMemoryNotFound),
		sentinelHandler(domain.ErrCategoryNotFound, http.StatusNotFound, CodeCategoryNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeMemoryNotFound),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrSearchFailed, http.StatusBadGateway, CodeSearchFailed),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.getHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/memories", s.createMemory)
		r.Get("/memories", s.listMemories)
		r.Get("/memories/{id}", s.getMemory)
		r.Delete("/memories/{id}", s.deleteMemory)

		r.Get("/search", s.textSearch)
		r.Post("/search/semantic", s.semanticSearch)

		r.Post("/intent", s.detectIntent)
		r.Get("/categories", s.listCategories)

		r.Post("/admin/embeddings/rebuild", s.rebuildEmbeddings)
		r.Get("/admin/usage", s.getUsage)
	})
}

// --- DTOs ---

type createMemoryRequest struct {
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	SourceType string         `json:"source_type"`
	SourceURL  string         `json:"source_url"`
	Category   string         `json:"category"`
	Metadata   map[string]any `json:"metadata"`
}

type memoryResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	SourceType string         `json:"source_type"`
	SourceURL  string         `json:"source_url,omitempty"`
	Category   string         `json:"category,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Classified bool           `json:"classified"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type memoryListResponse struct {
	Items []memoryResponse `json:"items"`
}

type semanticSearchRequest struct {
	Query       string  `json:"query"`
	Limit       int     `json:"limit"`
	MaxDistance float64 `json:"max_distance"`
}

type semanticHitResponse struct {
	Memory   memoryResponse `json:"memory"`
	Distance float64        `json:"distance"`
}

type semanticSearchResponse struct {
	Items []semanticHitResponse `json:"items"`
}

type intentRequest struct {
	Text string `json:"text"`
}

type intentResponse struct {
	Intent      string  `json:"intent"`
	SearchQuery string  `json:"search_query"`
	NeedsSearch bool    `json:"needs_search"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

type categoryResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

type rebuildRequest struct {
	MemoryIDs []string `json:"memory_ids"`
}

type usageResponse struct {
	DailyTokens   int64     `json:"daily_tokens"`
	MonthlyTokens int64     `json:"monthly_tokens"`
	DayResetsAt   time.Time `json:"day_resets_at"`
	MonthResetsAt time.Time `json:"month_resets_at"`
}

// --- Handlers ---

func (s *Server) createMemory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	m, err := s.memories.Create(r.Context(), memoryuc.CreateInput{
		OwnerID:    ownerID,
		Title:      req.Title,
		Content:    req.Content,
		SourceType: req.SourceType,
		SourceURL:  req.SourceURL,
		Category:   req.Category,
		Metadata:   req.Metadata,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, memoryToResponse(m))
}

func (s *Server) getMemory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	m, err := s.memories.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memoryToResponse(m))
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)
	category := r.URL.Query().Get("category")

	items, err := s.memories.List(r.Context(), ownerID, category, offset, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memoriesToResponse(items))
}

func (s *Server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	if err := s.memories.Delete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) textSearch(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query parameter q is required")
		return
	}
	limit := queryInt(r, "limit", 0)

	items, err := s.retrieval.TextSearch(r.Context(), ownerID, query, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memoriesToResponse(items))
}

func (s *Server) semanticSearch(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req semanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	hits, err := s.retrieval.SemanticSearch(r.Context(), ownerID, req.Query, req.Limit, req.MaxDistance)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := semanticSearchResponse{Items: make([]semanticHitResponse, len(hits))}
	for i, h := range hits {
		resp.Items[i] = semanticHitResponse{
			Memory:   memoryToResponse(h.Memory),
			Distance: h.Distance,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) detectIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}

	// Never fails: unparseable model output degrades to the safe default.
	res := s.intents.DetectIntent(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, intentResponse{
		Intent:      res.Intent,
		SearchQuery: res.SearchQuery,
		NeedsSearch: res.NeedsSearch,
		Confidence:  res.Confidence,
		Reasoning:   res.Reasoning,
	})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats := domain.Categories()
	items := make([]categoryResponse, len(cats))
	for i, c := range cats {
		items[i] = categoryResponse{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Icon:        c.Icon,
			Color:       c.Color,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) rebuildEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.MemoryIDs) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "memory_ids is required")
		return
	}
	if len(req.MemoryIDs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"batch size exceeds maximum of "+strconv.Itoa(maxBatchSize))
		return
	}

	outcome := s.pipe.EmbedBatch(r.Context(), req.MemoryIDs)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) getUsage(w http.ResponseWriter, r *http.Request) {
	rep, err := s.usage.Report(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{
		DailyTokens:   rep.DailyTokens,
		MonthlyTokens: rep.MonthlyTokens,
		DayResetsAt:   rep.DayResetsAt,
		MonthResetsAt: rep.MonthResetsAt,
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())
	code := http.StatusOK
	if rep.Status != healthuc.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": rep.Status,
		"checks": rep.Checks,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, userIDHeader+" header is required")
		return "", false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func memoryToResponse(m domain.Memory) memoryResponse {
	resp := memoryResponse{
		ID:         m.ID,
		Title:      m.Title,
		Content:    m.Content,
		SourceType: string(m.SourceType),
		SourceURL:  m.SourceURL,
		Category:   m.Category,
		Classified: m.Classified,
		Tags:       m.Tags,
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.Classified {
		c := m.Confidence
		resp.Confidence = &c
	}
	return resp
}

func memoriesToResponse(items []domain.Memory) memoryListResponse {
	resp := memoryListResponse{Items: make([]memoryResponse, len(items))}
	for i, m := range items {
		resp.Items[i] = memoryToResponse(m)
	}
	return resp
}
