// Package api serves the admin and public HTTP surface over chi.
package api

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sells-group/diagnostic-versions/internal/config"
	"github.com/sells-group/diagnostic-versions/internal/lifecycle"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

// Lifecycle is the version service the handlers drive.
type Lifecycle interface {
	ListDiagnostics(ctx context.Context, includeInactive bool) ([]lifecycle.DiagnosticItem, error)
	ActiveVersions(ctx context.Context, diagnosticID int64, code string) ([]lifecycle.ActiveVersionItem, error)
	Create(ctx context.Context, in lifecycle.CreateInput, actorID int64) (*model.Version, error)
	ListVersions(ctx context.Context, diagnosticID int64, status string, limit int) (*lifecycle.VersionList, error)
	Detail(ctx context.Context, versionID int64) (*lifecycle.VersionDetail, error)
	Prompt(ctx context.Context, versionID int64) (*lifecycle.PromptView, error)
	UpdatePrompt(ctx context.Context, versionID, actorID int64, prompt, note *string) (*lifecycle.PromptView, error)
	Template(ctx context.Context, versionID, diagnosticID int64) (*lifecycle.TemplateFile, error)
	Finalize(ctx context.Context, versionID, actorID int64) (*lifecycle.FinalizeResult, error)
	Activate(ctx context.Context, versionID, actorID, expectedDiagnosticID int64) (*lifecycle.ActivateResult, error)
	FormHash(ctx context.Context, versionID int64) (string, error)
	Form(ctx context.Context, versionID int64) (*lifecycle.Form, error)
}

// Importer applies uploaded structure workbooks.
type Importer interface {
	ImportContent(ctx context.Context, versionID, actorID int64, content []byte) (*model.ImportSummary, error)
}

// Pinger reports database liveness for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes requests to the lifecycle services.
type Server struct {
	router    chi.Router
	versions  Lifecycle
	importer  Importer
	db        Pinger
	validate  *validator.Validate
	limiter   *rate.Limiter
	maxUpload int64
	cache     string
}

// NewServer wires the router. db may be nil, in which case /health does not
// touch the database.
func NewServer(versions Lifecycle, importer Importer, db Pinger, cfg config.Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		versions:  versions,
		importer:  importer,
		db:        db,
		validate:  newValidator(),
		maxUpload: cfg.Server.MaxUploadBytes,
		cache:     cfg.Form.CacheControl,
	}
	if n := cfg.Server.ImportRatePerMinute; n > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
	s.routes(cfg.Server.AllowedOrigins)
	return s
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestID)
	s.router.Use(accessLog)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", adminHeader, "If-None-Match", requestIDHeader},
		ExposedHeaders: []string{"ETag", "Content-Disposition", requestIDHeader},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/diagnostics/versions/{version_id}/form", s.handleForm)

	s.router.Route("/admin/diagnostics", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/", s.handleListDiagnostics)
		r.Get("/active-versions", s.handleActiveVersions)
		r.Get("/{diagnostic_id}/versions", s.handleListVersions)
		r.Post("/versions", s.handleCreateVersion)
		r.Route("/versions/{version_id}", func(r chi.Router) {
			r.Get("/", s.handleVersionDetail)
			r.Get("/system-prompt", s.handleGetPrompt)
			r.Put("/system-prompt", s.handleUpdatePrompt)
			r.Get("/template", s.handleTemplate)
			r.With(s.rateLimit).Post("/structure/import", s.handleImport)
			r.Post("/finalize", s.handleFinalize)
			r.Post("/activate", s.handleActivate)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
