// Package server exposes the screener over HTTP: a small form-driven UI and
// a JSON API.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ternarybob/arbor"

	"github.com/contactkeval/option-screener/internal/screener"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Scanner is the part of the screener the HTTP layer consumes.
type Scanner interface {
	Scan(ctx context.Context, ticker string, opts screener.FilterOptions) (putsPivot, callsPivot screener.PivotMatrix, err error)
}

// Server routes HTTP requests to the scanner.
type Server struct {
	scanner  Scanner
	logger   arbor.ILogger
	validate *validator.Validate
	tmpl     *template.Template
	router   *mux.Router
	defaults screener.FilterOptions
}

// Option configures a Server.
type Option func(*Server)

// WithDefaults sets the filter options applied when a request leaves the
// threshold or where expression unset, typically from the loaded config.
func WithDefaults(defaults screener.FilterOptions) Option {
	return func(s *Server) {
		s.defaults = defaults
	}
}

// New constructs the HTTP layer over a scanner.
func New(scanner Scanner, logger arbor.ILogger, opts ...Option) *Server {
	s := &Server{
		scanner:  scanner,
		logger:   logger,
		validate: validator.New(),
		tmpl:     template.Must(template.ParseFS(templatesFS, "templates/*.html")),
		defaults: screener.DefaultFilterOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.requestID)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/scan", s.handleScanAPI).Methods(http.MethodGet)

	s.router = r
	return s
}

// Router returns the handler to mount.
func (s *Server) Router() http.Handler {
	return s.router
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestID tags every request with an id for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
