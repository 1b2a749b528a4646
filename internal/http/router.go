package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Scans    *ScanHandler
	Tags     *TagHandler
	Cart     *CartHandler
	Products *ProductHandler
	// Socket serves the push channel; it is mounted outside the request timeout.
	Socket http.Handler
}

func NewRouter(h Handlers, limiter *ClientLimiter, log logrus.FieldLogger, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(Logger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.Socket != nil {
		r.Handle("/socket", h.Socket)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Route("/api", func(r chi.Router) {
			r.Route("/tags", func(r chi.Router) {
				r.With(limiter.Middleware).Post("/", h.Scans.Post)
				r.Get("/", h.Tags.List)
				r.Get("/{uid}", h.Tags.Get)
				r.Put("/{uid}/link", h.Tags.Link)
				r.Delete("/{uid}/link", h.Tags.Unlink)
				r.Delete("/{uid}", h.Tags.Delete)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.List)
				r.Get("/{uid}", h.Cart.Get)
			})
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.Products.List)
				r.Get("/{id}", h.Products.Get)
				r.Put("/{id}", h.Products.Put)
				r.Delete("/{id}", h.Products.Delete)
			})
		})
	})

	return r
}
