package api

import (
	"net/http"
	"strconv"
	"time"

	"surveylens/app"
	"surveylens/internal"
	"surveylens/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// Server exposes the engine and stored uploads over HTTP.
type Server struct {
	analysis       *app.AnalysisService
	uploads        *app.UploadService
	metrics        *metrics.Metrics
	allowedOrigins []string
	maxUploadBytes int64
	logger         *internal.Logger
}

// Options configures NewServer.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Logger         *internal.Logger
}

func NewServer(analysis *app.AnalysisService, uploads *app.UploadService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Server{
		analysis:       analysis,
		uploads:        uploads,
		metrics:        opts.Metrics,
		allowedOrigins: opts.AllowedOrigins,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         logger.With("API"),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(s.instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/analyze", s.wrap(s.handleAnalyze))

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", s.wrap(s.handleUpload))
			r.Get("/", s.wrap(s.handleListUploads))
			r.Get("/{id}", s.wrap(s.handleGetUpload))
			r.Delete("/{id}", s.wrap(s.handleDeleteUpload))
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Get("/summary/{id}", s.wrap(s.handleSummary))
			r.Get("/questions/{id}", s.wrap(s.handleQuestions))
			r.Get("/{id}", s.wrap(s.handleAnalysis))
		})
	})

	return r
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			resp := NewErrorResponse(err)
			if resp.StatusCode >= http.StatusInternalServerError {
				s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
			} else {
				s.logger.Debug("%s %s: %v", r.Method, r.URL.Path, err)
			}
			render.Render(w, r, resp)
		}
	}
}

// instrument records request counts and latencies by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}
