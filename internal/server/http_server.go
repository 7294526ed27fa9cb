package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/emberdating/ember-backend/internal/config"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
)

// NewRouter assembles the HTTP surface: common middleware, a JSON 404,
// and every feature registrar mounted behind the auth middleware. All
// endpoints are bearer-token authenticated; there is no public surface
// beyond the error responses themselves.
func NewRouter(authMiddleware func(http.Handler) http.Handler, registrars ...Registrar) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		svcErr.Write(w, svcErr.NotFound("unknown route"))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authMiddleware)
		for _, reg := range registrars {
			reg.Register(pr)
		}
	})

	return r
}

// StartHTTPServer boots the HTTP server on the configured address.
func StartHTTPServer(cfg *config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	return http.ListenAndServe(addr, handler)
}
