package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/scribe-api/internal/api"
	apiMiddleware "github.com/phrazzld/scribe-api/internal/api/middleware"
	"github.com/phrazzld/scribe-api/internal/ratelimit"
)

// Rate limit scopes. Each scope has its own bucket per client.
const (
	scopeGenerate = "generate"
	scopeBrandAds = "brand_ads"
	scopeDomains  = "domains"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.NewMetricsMiddleware(app.metrics))
	r.Use(middleware.Recoverer)

	batchHandler := api.NewBatchHandler(app.batchService, app.logger)
	blogHandler := api.NewBlogHandler(app.batchService, app.metrics, app.logger)
	brandHandler := api.NewBrandHandler(app.brands, app.metrics, app.logger)
	domainHandler := api.NewDomainHandler(app.domains, app.metrics, app.logger)
	limiter := apiMiddleware.NewRateLimiter(
		app.limiter,
		ratelimit.BucketFromConfig(app.config.RateLimit),
		app.metrics,
		app.logger,
	)

	r.Route("/api", func(r chi.Router) {
		// Endpoints that spend model quota are rate limited
		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit(scopeGenerate))
			r.Post("/batches", batchHandler.SubmitBatch)
			r.Post("/batches/form", batchHandler.SubmitForm)
			r.Post("/batches/csv", batchHandler.SubmitCSV)
			r.Post("/tasks/{id}/retry", batchHandler.RetryTask)
		})
		r.With(limiter.Limit(scopeBrandAds)).Post("/brand-ads", brandHandler.LookupBrandAds)
		r.With(limiter.Limit(scopeDomains)).Post("/domains/analyze", domainHandler.AnalyzeDomains)
		r.Post("/domains/export", domainHandler.ExportDomains)

		r.Get("/options", batchHandler.Options)

		r.Get("/tasks", batchHandler.ListTasks)
		r.Delete("/tasks", batchHandler.ClearTasks)
		r.Delete("/tasks/{id}", batchHandler.DeleteTask)

		r.Get("/blogs", blogHandler.ListBlogs)
		r.Get("/blogs/{id}", blogHandler.GetBlog)
		r.Get("/export/docx", blogHandler.ExportDocx)
	})

	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
