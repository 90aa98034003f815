// Package httpapi wires the chi router for the book service.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/twojabajka/server/internal/http/handlers"
	"github.com/twojabajka/server/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*app.Log),
		middleware.CORS(app.Cfg.AllowedOrigins),
		middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/books", func(r chi.Router) {
		r.Post("/generate", app.GenerateBook)
		r.Post("/pdf", app.RenderPDF)
	})
	r.Post("/v1/themes/random", app.RandomTheme)
	r.Post("/v1/dedications/generate", app.GenerateDedication)

	return r
}
