package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/pkg/api/handlers"
	"github.com/guzman109/ArrayMorph/pkg/config"
	"github.com/guzman109/ArrayMorph/pkg/connector"
	"github.com/guzman109/ArrayMorph/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET    /health            liveness probe
//   - GET    /health/ready      chunk store health check
//   - GET    /metrics           Prometheus exposition (when metrics are enabled)
//   - GET    /v1/chunks/read    selected bytes of one chunk
//   - PUT    /v1/chunks/write   store the selected bytes of one chunk
//   - GET    /v1/chunks/plan    planned segments as JSON
//   - DELETE /v1/chunks         remove one chunk object
func NewRouter(conn *connector.Connector, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	var backend handlers.Backend
	platform := ""
	if conn != nil {
		backend = conn
		platform = conn.Config().Storage.Platform
	}
	healthHandler := handlers.NewHealthHandler(backend, platform)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if reg := metrics.GetRegistry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	if conn != nil {
		chunkHandler := handlers.NewChunkHandler(conn, int64(cfg.MaxBodySize))
		r.Route("/v1/chunks", func(r chi.Router) {
			r.Get("/read", chunkHandler.Read)
			r.Put("/write", chunkHandler.Write)
			r.Get("/plan", chunkHandler.Plan)
			r.Delete("/", chunkHandler.Delete)
		})
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs request start at DEBUG and completion at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyClientIP, r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyLength, ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		)
	})
}
