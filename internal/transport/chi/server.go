// Package chi exposes the article and visualization API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/resolve-studio/semgraph/internal/domain"
	articleuc "github.com/resolve-studio/semgraph/internal/usecase/article"
	healthuc "github.com/resolve-studio/semgraph/internal/usecase/health"
	visualizationuc "github.com/resolve-studio/semgraph/internal/usecase/visualization"
)

// graphCacheControl tells intermediaries the artifact is immutable for an
// hour; the content version key makes longer staleness harmless.
const graphCacheControl = "public, max-age=3600"

// Error codes returned in API error bodies.
const (
	codeBadRequest       = "bad_request"
	codeInvalidContent   = "invalid_content"
	codeArticleNotFound  = "article_not_found"
	codeModelUnavailable = "model_unavailable"
	codeGraphUnavailable = "graph_unavailable"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// articleRequest is the PUT body: the structured article content.
type articleRequest struct {
	Blocks []blockDTO `json:"blocks"`
}

type blockDTO struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// articleResponse is returned by the article write and read endpoints.
type articleResponse struct {
	ID        string     `json:"id"`
	Version   string     `json:"version"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server routes HTTP requests to the article and visualization services.
type Server struct {
	articles      *articleuc.Service
	visualization *visualizationuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	articles *articleuc.Service,
	visualization *visualizationuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		articles:      articles,
		visualization: visualization,
		health:        health,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrArticleNotFound, http.StatusNotFound, codeArticleNotFound),
		sentinelHandler(domain.ErrInvalidContent, http.StatusBadRequest, codeInvalidContent),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusBadGateway, codeModelUnavailable),
		sentinelHandler(domain.ErrGraphUnavailable, http.StatusBadGateway, codeGraphUnavailable),
	}
	return s
}

// Routes registers all API routes. Write endpoints go through bearer auth;
// reads, health and metrics stay open.
func (s *Server) Routes(r chirouter.Router, apiKeys []string) {
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1/articles/{articleID}", func(r chirouter.Router) {
		r.Get("/", s.GetArticle)
		r.Get("/graph", s.GetGraph)

		r.Group(func(r chirouter.Router) {
			r.Use(BearerAuthMiddleware(apiKeys))
			r.Put("/", s.UpsertArticle)
			r.Delete("/", s.DeleteArticle)
		})
	})
}

// UpsertArticle handles PUT /v1/articles/{articleID}.
func (s *Server) UpsertArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chirouter.URLParam(r, "articleID")

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	body := make([]domain.Block, len(req.Blocks))
	for i, b := range req.Blocks {
		body[i] = domain.Block{Type: domain.BlockType(b.Type), Text: b.Text}
	}

	art, err := s.articles.Save(r.Context(), articleID, body)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, articleResponse{ID: art.ID, Version: art.Version})
}

// GetArticle handles GET /v1/articles/{articleID}.
func (s *Server) GetArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chirouter.URLParam(r, "articleID")

	art, err := s.articles.Get(r.Context(), articleID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	updatedAt := art.UpdatedAt
	writeJSON(w, http.StatusOK, articleResponse{
		ID:        art.ID,
		Version:   art.Version,
		UpdatedAt: &updatedAt,
	})
}

// DeleteArticle handles DELETE /v1/articles/{articleID}.
func (s *Server) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chirouter.URLParam(r, "articleID")

	if err := s.articles.Delete(r.Context(), articleID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /v1/articles/{articleID}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	articleID := chirouter.URLParam(r, "articleID")

	g, err := s.visualization.GetGraph(r.Context(), articleID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Cache-Control", graphCacheControl)
	writeJSON(w, http.StatusOK, g)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrArticleNotFound,
		domain.ErrInvalidContent,
		domain.ErrModelUnavailable,
		domain.ErrGraphUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
