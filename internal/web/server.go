// Package web serves the upload page and report downloads.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"physioreport/internal/apperrors"
	"physioreport/internal/metrics"
	"physioreport/internal/report"
	"physioreport/internal/upload"
)

//go:embed templates/*
var templates embed.FS

var pageTmpl = template.Must(template.ParseFS(templates, "templates/upload.html"))

// Analyzer turns an uploaded session into a report.
type Analyzer interface {
	Analyze(ctx context.Context, session report.Session, video report.Video) (*report.Report, error)
}

// Options configures the server
type Options struct {
	// Mode labels metrics and the page, e.g. "demo" or "remote"
	Mode           string
	ScratchDir     string
	MaxUploadBytes int64
	EnableCORS     bool
	CORSOrigins    []string
	// Debug includes error causes in responses
	Debug bool
}

// Server wires HTTP handlers to an Analyzer
type Server struct {
	analyzer Analyzer
	opts     Options
	logger   *zap.Logger
	errors   *apperrors.Handler
	metrics  *metrics.Collector
}

// NewServer creates a server. collector may be nil to disable metrics.
func NewServer(analyzer Analyzer, opts Options, logger *zap.Logger, collector *metrics.Collector) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		analyzer: analyzer,
		opts:     opts,
		logger:   logger,
		errors:   apperrors.NewHandler(logger, opts.Debug),
		metrics:  collector,
	}
}

// Routes builds the router with all middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if s.opts.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Content-Disposition", "X-Request-ID", anglesHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/", s.handleIndex)
	r.Post("/reports", s.handleReport)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

func (s *Server) uploadOptions() upload.Options {
	return upload.Options{Dir: s.opts.ScratchDir, MaxBytes: s.opts.MaxUploadBytes}
}
