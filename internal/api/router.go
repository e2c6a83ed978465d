// Package api wires the HTTP routes for the export service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"admesh-export/internal/api/handler"
)

// NewRouter assembles the chi router with the standard middleware stack.
func NewRouter(h *handler.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/export/jobs", func(r chi.Router) {
			r.Post("/", h.CreateExportJob)
			r.Get("/", h.ListExportJobs)
			r.Get("/{id}", h.GetExportJob)
			r.Get("/{id}/download", h.DownloadExport)
		})

		r.Route("/warehouse/sync", func(r chi.Router) {
			r.Post("/", h.ScheduleWarehouseSync)
			r.Get("/{id}", h.GetWarehouseSync)
			r.Post("/{id}/execute", h.ExecuteWarehouseSync)
		})
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
