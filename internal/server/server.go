// Package server exposes the stored series, run status and metrics over
// HTTP and lets operators trigger runs.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"StockAnalytics/internal/model"
	"StockAnalytics/internal/pipeline"
	"StockAnalytics/internal/recorder"
)

// SeriesStore reads persisted series.
type SeriesStore interface {
	SeriesByTicker(ctx context.Context, ticker string, on *time.Time) ([]recorder.StockRow, error)
	ListSeries(ctx context.Context, offset, limit int) ([]recorder.StockRow, error)
}

// RunTrigger starts ticker runs on demand.
type RunTrigger interface {
	RunTickers(ctx context.Context, tickers []string) *model.RunSummary
}

// StatusSource reports the latest run per ticker.
type StatusSource interface {
	Snapshot() ([]model.TickerRun, int)
}

// Processor runs the core pipeline over one file.
type Processor interface {
	Process(ctx context.Context, job pipeline.Job) (*pipeline.Result, error)
}

// Deps are the collaborators behind the routes. Metrics may be nil.
type Deps struct {
	Store        SeriesStore
	Runs         RunTrigger
	Status       StatusSource
	Processor    Processor
	Metrics      http.Handler
	RawDir       string
	ProcessedDir string
	// CORSOrigins enables CORS for the listed origins. Empty disables it.
	CORSOrigins []string
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	router chi.Router
	srv    *http.Server
}

// New builds the router for addr.
func New(addr string, deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger.With().Str("component", "http").Logger(),
	}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.deps.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.health)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/status", s.status)
		r.Get("/stocks", s.listStocks)
		r.Route("/stocks/{ticker}", func(r chi.Router) {
			r.Use(tickerCtx)
			r.Get("/", s.getStock)
			r.Get("/csv", s.exportCSV)
		})
		r.With(tickerCtx).Post("/runs/{ticker}", s.triggerRun)
		r.Post("/process", s.processFile)
	})
	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http server error")
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
