package messaging

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emberdating/ember-backend/internal/auth"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
)

// Registrar ties the messaging endpoints into the HTTP router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the messaging service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the messaging routes to the (authenticated) router.
func (r *Registrar) Register(router chi.Router) {
	router.Get("/chats", r.listChats)
	router.Get("/history", r.getHistory)
	router.Post("/mark-read", r.markRead)
}

func (r *Registrar) listChats(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	chats, err := r.svc.ListChats(req.Context(), userID)
	if err != nil {
		svcErr.Write(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"chats": chats})
}

func (r *Registrar) getHistory(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	chatID := req.URL.Query().Get("chatId")
	if chatID == "" {
		svcErr.Write(w, svcErr.Invalid("chatId is required"))
		return
	}

	msgs, err := r.svc.GetHistory(req.Context(), userID, chatID)
	if err != nil {
		svcErr.Write(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"messages": msgs})
}

func (r *Registrar) markRead(w http.ResponseWriter, req *http.Request) {
	userID, ok := auth.FromContext(req.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	var body struct {
		ChatID string `json:"chatId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.ChatID == "" {
		svcErr.Write(w, svcErr.Invalid("chatId is required"))
		return
	}

	if err := r.svc.MarkRead(req.Context(), userID, body.ChatID); err != nil {
		svcErr.Write(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
