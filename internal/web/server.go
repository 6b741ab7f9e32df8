package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/cache"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/feed"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configures a Server. DB may be nil, in which case the store
// endpoints answer 503.
type Options struct {
	Pipeline    *dashboard.Pipeline
	DB          *cache.Cache
	Sources     []config.Source
	FetchOpts   feed.FetchOpts
	Logger      *zap.Logger
	DatasetName string
}

// Server serves the dashboard pages and the JSON API.
type Server struct {
	pipeline    *dashboard.Pipeline
	db          *cache.Cache
	sources     []config.Source
	fetchOpts   feed.FetchOpts
	logger      *zap.Logger
	datasetName string
	tmpl        *template.Template

	scrapeMu sync.Mutex
}

func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("web: pipeline is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"ago":   humanize.Time,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Server{
		pipeline:    opts.Pipeline,
		db:          opts.DB,
		sources:     opts.Sources,
		fetchOpts:   opts.FetchOpts,
		logger:      logger,
		datasetName: opts.DatasetName,
		tmpl:        tmpl,
	}, nil
}

// Routes configures HTTP routes.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/", s.overviewHandler).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.overviewHandler).Methods(http.MethodGet)
	r.HandleFunc("/dashboard.html", s.dashboardHandler).Methods(http.MethodGet)
	r.HandleFunc("/refresh", s.refreshHandler).Methods(http.MethodPost)
	r.HandleFunc("/assets/sample-data.json", s.datasetHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/records", s.recordsHandler).Methods(http.MethodGet)
	api.HandleFunc("/search", s.searchHandler).Methods(http.MethodGet)
	api.HandleFunc("/scrape", s.scrapeHandler).Methods(http.MethodPost)

	return r
}

// Scrape collects all sources into the store. Concurrent calls are serialized.
func (s *Server) Scrape(ctx context.Context) (feed.CollectResult, error) {
	if s.db == nil {
		return feed.CollectResult{}, errNoStore
	}

	s.scrapeMu.Lock()
	defer s.scrapeMu.Unlock()

	start := time.Now()
	res, err := feed.Collect(ctx, s.db, s.sources, s.fetchOpts)
	if err != nil {
		s.logger.Error("scrape failed", zap.Error(err))
		return res, err
	}
	for _, e := range res.Errors {
		s.logger.Warn("source skipped", zap.Error(e))
	}
	s.logger.Info("scrape finished",
		zap.Int("sources", len(s.sources)),
		zap.Int("fetched", res.Fetched),
		zap.Int("inserted", res.Inserted),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
