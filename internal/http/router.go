package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mediaforge/internal/http/handlers"
	"mediaforge/internal/middleware"
)

// NewRouter wires the HTTP surface: task submission and reads, the
// on-demand provider query, the reconcile trigger, metrics and health.
// staticDir, when non-empty, is served under /static for the filesystem
// storage backend.
func NewRouter(app *handlers.App, countryLookup middleware.CountryLookup, staticDir string) stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Cfg.AllowedOrigins),
		middleware.Locale("en", countryLookup),
		middleware.Identity(app.Cfg.JWTSecret),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/tasks", func(r chi.Router) {
		r.With(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute)).Post("/", app.SubmitTask)
		r.Get("/", app.ListTasks)
		r.Get("/{task_id}", app.GetTask)
		r.With(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute)).Post("/{task_id}/query", app.QueryTask)
		r.Get("/{task_id}/download", app.DownloadTaskAssets)
	})

	r.Post("/v1/internal/reconcile", app.TriggerReconcile)

	r.Get("/v1/metrics/reconcile-24h", app.ReconcileMetrics24h)

	if staticDir != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(staticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
