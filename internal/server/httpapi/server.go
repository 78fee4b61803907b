// Package httpapi exposes the metadata server over HTTP JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/services"
)

const (
	readHeaderTimeout = 10 * time.Second
	maxRequestBody    = 1 << 20
)

type uploadAuthorizer interface {
	Authorize(ctx context.Context, in services.AuthorizeInput) (*services.Authorization, error)
}

type recordService interface {
	Finalize(ctx context.Context, in services.FinalizeInput) (*models.Record, error)
	Get(ctx context.Context, id string) (*models.Record, string, error)
}

// HealthFunc reports whether the server's dependencies are usable.
type HealthFunc func(ctx context.Context) error

type HTTPServer struct {
	address         string
	uploads         uploadAuthorizer
	records         recordService
	health          HealthFunc
	logger          logging.Logger
	validator       *Validator
	registry        *prometheus.Registry
	metrics         *Metrics
	shutdownTimeout time.Duration
	corsOrigins     []string
}

type Option func(*HTTPServer)

// WithCORS lets browsers on the given origins call the API.
func WithCORS(origins []string) Option {
	return func(s *HTTPServer) { s.corsOrigins = origins }
}

func NewHTTPServer(addr string, l logging.Logger, us uploadAuthorizer, rs recordService, health HealthFunc, shutdownTimeout time.Duration, opts ...Option) *HTTPServer {
	reg := prometheus.NewRegistry()
	m := NewMetrics("mediadrop")
	reg.MustRegister(m.Collectors()...)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	v := NewValidator()
	v.Register(jsonFieldNames)

	s := &HTTPServer{
		address:         addr,
		uploads:         us,
		records:         rs,
		health:          health,
		logger:          l.With("module", "http_server"),
		validator:       v,
		registry:        reg,
		metrics:         m,
		shutdownTimeout: shutdownTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the chi router with all routes and middleware.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Handler)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/uploads/authorize", s.handleAuthorize)
		r.Post("/records", s.handleFinalize)
		r.Get("/records/{id}", s.handleGetRecord)
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
