package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
	"github.com/couchcryptid/grocery-deals-api/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Directory is the application surface the API exposes.
type Directory interface {
	CreateStore(ctx context.Context, in domain.StoreInput) (domain.Store, error)
	GetStore(ctx context.Context, id int64) (domain.Store, error)
	FindStoresWithinRadius(ctx context.Context, q domain.RadiusQuery) ([]domain.Store, error)
	CreatePromotion(ctx context.Context, storeID int64, in domain.PromotionInput) (domain.Promotion, error)
	ListPromotions(ctx context.Context, storeID int64, page domain.Page) ([]domain.Promotion, error)
	ResolveAddress(ctx context.Context, address string) (geo.Coordinates, bool, error)
}

// Server exposes the /api/v1 routes plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	dir        Directory
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, dir Directory, ready sharedobs.ReadinessChecker, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:     mux,
		dir:     dir,
		logger:  logger,
		metrics: metrics,
	}

	s.route("POST /api/v1/geocode", s.handleGeocode)
	s.route("POST /api/v1/stores", s.handleCreateStore)
	s.route("GET /api/v1/stores", s.handleSearchStores)
	s.route("GET /api/v1/stores/{id}", s.handleGetStore)
	s.route("POST /api/v1/stores/{id}/promotions", s.handleCreatePromotion)
	s.route("GET /api/v1/stores/{id}/promotions", s.handleListPromotions)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// route registers an API handler and records its request count and latency
// under the route pattern, so path parameters do not explode label cardinality.
func (s *Server) route(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(h, w, r)
		s.metrics.HTTPRequests.WithLabelValues(path, method, strconv.Itoa(m.Code)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(path, method).Observe(m.Duration.Seconds())
		s.logger.Debug("request served",
			"method", method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration", m.Duration,
		)
	}))
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
