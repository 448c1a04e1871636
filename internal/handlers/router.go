package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// SetupRouter attaches base middlewares, the health endpoint and the API
// routes to r.
func SetupRouter(r chi.Router, h *Handler) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", h.Search)

		r.Route("/shows/{id}", func(r chi.Router) {
			r.Get("/", h.ShowDetails)
			r.Get("/seasons", h.Seasons)
			r.Get("/episodes", h.Episodes)
			r.Get("/cast", h.Cast)
			r.Get("/images", h.Images)
		})

		r.Route("/recent", func(r chi.Router) {
			r.Get("/", h.ListRecent)
			r.Delete("/", h.ClearRecent)
			r.Get("/events", h.RecentEvents)
			r.Delete("/{id}", h.ForgetRecent)
		})
	})
}

func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	SetupRouter(r, h)
	return r
}

func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("Request handled")
		})
	}
}
