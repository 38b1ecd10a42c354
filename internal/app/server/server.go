// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/app/handler"
	"github.com/atinyakov/kv-url-shortener/internal/app/service"
	"github.com/atinyakov/kv-url-shortener/internal/metrics"
	"github.com/atinyakov/kv-url-shortener/internal/middleware"
)

type Options struct {
	// EnableList exposes GET /getAll.
	EnableList bool
	// TrustedSubnet restricts GET /getAll to clients in this CIDR.
	TrustedSubnet string
}

// Init builds the router for every HTTP route of the service.
func Init(svc service.URLServiceIface, health *handler.HealthHandler, m *metrics.Metrics, logger *zap.Logger, opts Options) (*chi.Mux, error) {
	post := handler.NewPost(svc, logger)
	get := handler.NewGet(svc, logger)
	notFound := handler.NotFound(logger)

	subnet, err := middleware.WithTrustedSubnet(opts.TrustedSubnet, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.WithRequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithMetrics(m))
	r.Use(chimw.Recoverer)

	r.Get("/health", health.Check)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	if opts.EnableList {
		r.With(subnet, middleware.WithGZIPResponse).Get("/getAll", get.All)
	} else {
		r.Get("/getAll", notFound)
	}

	r.With(middleware.WithGZIPRequest).Post("/shorten", post.Shorten)
	r.Get("/{shortID}", get.ByShort)

	r.MethodNotAllowed(notFound)
	r.NotFound(notFound)

	return r, nil
}
