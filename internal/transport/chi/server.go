package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
	logpkg "github.com/kailas-cloud/vitrine/internal/logger"
	healthuc "github.com/kailas-cloud/vitrine/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vitrine/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the product listing and search API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		imageTooLargeHandler,
		sentinelHandler(domain.ErrInvalidImage, http.StatusBadRequest, CodeInvalidImage),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, CodeUpstreamError),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.ListProducts)
		r.Get("/facets", s.GetFacets)
		r.Get("/categories", s.GetCategories)
		r.Get("/brands", s.GetBrands)
	})
	r.Route("/search", func(r chi.Router) {
		r.Get("/text", s.SearchText)
		r.Post("/image", s.SearchImage)
	})
}

// ListProducts handles GET /products.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	pred, err := predicateFromRequest(r, "")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.WithQueryUsage(r.Context())
	res, err := s.search.List(ctx, pred)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resultPageToView(&res))
}

// SearchText handles GET /search/text?q=...
func (s *Server) SearchText(w http.ResponseWriter, r *http.Request) {
	pred, err := predicateFromRequest(r, "q")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !pred.HasSearch() {
		s.handleDomainError(w, r, domain.NewValidationError("q", "search text is required"))
		return
	}

	ctx, usage := domain.WithQueryUsage(r.Context())
	res, err := s.search.SearchText(ctx, pred)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resultPageToView(&res))
}

// SearchImage handles POST /search/image (multipart "file").
func (s *Server) SearchImage(w http.ResponseWriter, r *http.Request) {
	pred, err := predicateFromRequest(r, "")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	img, mimeType, err := readImageUpload(w, r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.WithQueryUsage(r.Context())
	res, err := s.search.SearchImage(ctx, img, mimeType, pred)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resultPageToView(&res))
}

// GetFacets handles GET /products/facets.
func (s *Server) GetFacets(w http.ResponseWriter, r *http.Request) {
	set, err := s.search.Facets(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make(map[string][]string, len(product.FilterableAttributes))
	for _, a := range product.FilterableAttributes {
		out[string(a)] = set.Values(a)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCategories handles GET /products/categories.
func (s *Server) GetCategories(w http.ResponseWriter, r *http.Request) {
	s.writeFacet(w, r, product.Category, "categories")
}

// GetBrands handles GET /products/brands.
func (s *Server) GetBrands(w http.ResponseWriter, r *http.Request) {
	s.writeFacet(w, r, product.Brand, "brands")
}

func (s *Server) writeFacet(w http.ResponseWriter, r *http.Request, a product.Attribute, key string) {
	set, err := s.search.Facets(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{key: set.Values(a)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	// Degraded still serves catalog listing, so only Unhealthy is 503.
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.QueryUsage) {
	snap := usage.Snapshot()
	if snap.Calls == 0 {
		return
	}
	w.Header().Set("X-Embedding-Calls", strconv.Itoa(snap.Calls))
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(snap.Tokens))
	if snap.Translated {
		w.Header().Set("X-Query-Translated", "true")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// validationHandler reports the offending field of a ValidationError.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Code:    CodeValidationFailed,
		Message: ve.Message,
		Field:   ve.Field,
	})
	return true
}

func imageTooLargeHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, errImageTooLarge) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		"image must not exceed "+strconv.Itoa(MaxImageBytes>>20)+" MiB")
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel's message only, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.From(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Info("request rejected", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
