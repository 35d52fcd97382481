// Package api exposes the market-data layer over HTTP: REST-style read
// endpoints plus the action/params proxy shape used by the front end.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"paisamarket/internal/aggregate"
	"paisamarket/internal/fallback"
	"paisamarket/internal/news"
	"paisamarket/internal/provider"
)

// MarketData resolves market requests. *fallback.Coordinator implements it.
type MarketData interface {
	Fetch(ctx context.Context, req provider.Request) (fallback.Result, error)
}

// NewsSource resolves headline queries. *news.Fetcher implements it.
type NewsSource interface {
	Fetch(ctx context.Context, q news.Query) (news.Result, error)
}

// Prober fans a request out to every provider. *app.App implements it.
type Prober interface {
	Probe(ctx context.Context, req provider.Request) (aggregate.Report, error)
}

const maxBodyBytes = 1 << 20

// Server is the HTTP API.
type Server struct {
	market  MarketData
	news    NewsSource
	prober  Prober
	log     logrus.FieldLogger
	timeout time.Duration
	origins []string

	router chi.Router
}

type Option func(*Server)

func WithNews(n NewsSource) Option {
	return func(s *Server) { s.news = n }
}

func WithProber(p Prober) Option {
	return func(s *Server) { s.prober = p }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func NewServer(market MarketData, opts ...Option) *Server {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	s := &Server{
		market:  market,
		log:     silent,
		timeout: 10 * time.Second,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(middleware.Compress(5, "application/json", "text/plain"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/quote/{symbol}", s.handleQuote)
		r.Get("/coins/{symbol}", s.handleDetail)
		r.Get("/markets", s.handleMarkets)
		r.Get("/history/{symbol}", s.handleHistory)
		r.Get("/probe", s.handleProbe)
		r.Get("/providers", s.handleProviders)
		r.Get("/news", s.handleNews)
		r.Post("/proxy", s.handleProxy)
	})
	return r
}

// requestLogger logs one line per request with logrus fields.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"took":       time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
