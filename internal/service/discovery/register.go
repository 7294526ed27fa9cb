package discovery

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/emberdating/ember-backend/internal/auth"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
	"github.com/emberdating/ember-backend/internal/repository"
)

// Registrar ties the discovery endpoint into the HTTP router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the discovery service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the discovery route to the (authenticated) router.
func (r *Registrar) Register(router chi.Router) {
	router.Get("/discovery", r.discover)
}

func (r *Registrar) discover(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	params := req.URL.Query()
	q := Query{
		Filters: repository.DiscoveryFilters{
			Gender:    params.Get("gender"),
			MinAge:    intParam(params.Get("minAge")),
			MaxAge:    intParam(params.Get("maxAge")),
			Ethnicity: params.Get("ethnicity"),
			Religion:  params.Get("religion"),
		},
		Sort:   params.Get("sort"),
		Offset: intParam(params.Get("offset")),
		Limit:  intParam(params.Get("limit")),
	}

	profiles, err := r.svc.Discover(req.Context(), userID, q)
	if err != nil {
		svcErr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"profiles": profiles})
}

func intParam(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
