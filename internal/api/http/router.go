// Package http exposes validation, export and course building over a
// chi router.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-scorm/internal/auth/middleware"
	"github.com/mind-engage/mindengage-scorm/internal/catalog"
	"github.com/mind-engage/mindengage-scorm/internal/config"
	"github.com/mind-engage/mindengage-scorm/internal/platform/logger"
	"github.com/mind-engage/mindengage-scorm/internal/rbac"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

// maxUpload bounds request bodies carrying packages or question files.
const maxUpload = 64 << 20

type Deps struct {
	Cfg   config.Config
	Store *catalog.SQLStore
	Blobs storage.BlobStore
	Auth  *auth.AuthService
	Log   *logger.Logger
}

func (d Deps) exportDefaults(ctx context.Context) (catalog.ExportDefaults, error) {
	return d.Store.ExportDefaults(ctx, catalog.ExportDefaults{
		TemplateSource: d.Cfg.TemplateSource,
		Prefix:         d.Cfg.ExportPrefix,
		Stylesheet:     d.Cfg.Stylesheet,
		Locale:         d.Cfg.Locale,
	})
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition", headerExportID, headerIssues},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Cfg.EnableAuth {
		r.Post("/auth/login", auth.LoginHandler(d.Auth))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		if d.Cfg.EnableAuth {
			pr.Use(auth.JWTMiddleware(d.Auth))
		} else {
			pr.Use(auth.AttachRole("local", rbac.RoleAuthor))
		}

		pr.With(rbac.Require(rbac.PermPackageValidate)).
			Post("/packages/validate", ValidatePackageHandler(d))

		pr.With(rbac.Require(rbac.PermExportCreate)).
			Post("/exports", CreateExportHandler(d))
		pr.With(rbac.RequireAny(rbac.PermExportView, rbac.PermExportCreate)).
			Get("/exports", ListExportsHandler(d))
		pr.With(rbac.Require(rbac.PermExportView)).
			Get("/exports/{id}/package", DownloadExportHandler(d))

		pr.With(rbac.Require(rbac.PermCourseBuild)).
			Post("/courses/build", BuildCourseHandler(d))

		pr.With(rbac.Require(rbac.PermPrefsRead)).
			Get("/preferences", ListPreferencesHandler(d))
		pr.With(rbac.Require(rbac.PermPrefsRead)).
			Get("/preferences/{key}", GetPreferenceHandler(d))
		pr.With(rbac.Require(rbac.PermPrefsWrite)).
			Put("/preferences/{key}", PutPreferenceHandler(d))
		pr.With(rbac.Require(rbac.PermPrefsWrite)).
			Delete("/preferences/{key}", DeletePreferenceHandler(d))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	return r
}
