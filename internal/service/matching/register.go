package matching

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emberdating/ember-backend/internal/auth"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
)

// Registrar ties the matching endpoints into the HTTP router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the matching service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the matching routes to the (authenticated) router.
func (r *Registrar) Register(router chi.Router) {
	router.Post("/like", r.like)
	router.Post("/dislike", r.dislike)
	router.Get("/matches", r.listMatches)
	router.Get("/likes-you", r.listLikedYou)
	router.Get("/likes-you/count", r.countLikedYou)
	router.Get("/your-likes", r.listYourLikes)
}

type decisionRequest struct {
	TargetUserID uint64 `json:"targetUserId"`
}

func (r *Registrar) like(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	var body decisionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		svcErr.Write(w, svcErr.Invalid("malformed request body"))
		return
	}

	result, err := r.svc.Like(req.Context(), userID, body.TargetUserID)
	if err != nil {
		svcErr.Write(w, err)
		return
	}
	writeJSON(w, result)
}

func (r *Registrar) dislike(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	var body decisionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		svcErr.Write(w, svcErr.Invalid("malformed request body"))
		return
	}

	if err := r.svc.Dislike(req.Context(), userID, body.TargetUserID); err != nil {
		svcErr.Write(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (r *Registrar) listMatches(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	profiles, err := r.svc.ListMatches(req.Context(), userID)
	if err != nil {
		svcErr.Write(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"matches": profiles})
}

func (r *Registrar) listLikedYou(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	profiles, next, err := r.svc.ListLikedYou(req.Context(), userID, pageToken(req))
	if err != nil {
		svcErr.Write(w, err)
		return
	}
	writeList(w, "likesYou", profiles, next)
}

func (r *Registrar) listYourLikes(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	profiles, next, err := r.svc.ListYourLikes(req.Context(), userID, pageToken(req))
	if err != nil {
		svcErr.Write(w, err)
		return
	}
	writeList(w, "yourLikes", profiles, next)
}

func (r *Registrar) countLikedYou(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	count, err := r.svc.CountLikedYou(req.Context(), userID)
	if err != nil {
		svcErr.Write(w, err)
		return
	}
	writeJSON(w, map[string]uint64{"count": count})
}

func pageToken(req *http.Request) *string {
	if t := req.URL.Query().Get("pageToken"); t != "" {
		return &t
	}
	return nil
}

func writeList(w http.ResponseWriter, key string, profiles []Profile, next *string) {
	resp := map[string]interface{}{key: profiles}
	if next != nil {
		resp["nextPageToken"] = *next
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
