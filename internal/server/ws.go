package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/emberdating/ember-backend/internal/auth"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
	"github.com/emberdating/ember-backend/internal/realtime"
	"github.com/emberdating/ember-backend/internal/service/messaging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the app origins once they are final
	},
}

// Frame actions accepted on the realtime channel.
const (
	actionSendMessage = "sendMessage"
	actionEditMessage = "editMessage"
)

// wsFrame is the envelope every inbound socket frame decodes into. The
// sender identity never comes from the frame — it was bound to the
// session at connect time from the verified token.
type wsFrame struct {
	Action      string  `json:"action"`
	RecipientID uint64  `json:"recipientId,omitempty"`
	MessageID   uint64  `json:"messageId,omitempty"`
	Text        string  `json:"text,omitempty"`
	ReplyToID   *uint64 `json:"replyToId,omitempty"`
}

// WSHandler owns the /ws endpoint: it upgrades connections, registers
// the session in the connection registry, and dispatches inbound frames
// to the messaging service.
type WSHandler struct {
	gateway   *realtime.Gateway
	messaging *messaging.Service
	logger    *slog.Logger
}

func NewWSHandler(gateway *realtime.Gateway, msgSvc *messaging.Service, logger *slog.Logger) *WSHandler {
	return &WSHandler{gateway: gateway, messaging: msgSvc, logger: logger}
}

// Register attaches the websocket route to the (authenticated) router.
func (h *WSHandler) Register(r chi.Router) {
	r.Get("/ws", h.serveWS)
}

func (h *WSHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.FromContext(r.Context())
	if !ok {
		svcErr.Write(w, svcErr.Unauthorized("missing identity"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	handle := uuid.NewString()
	if err := h.messaging.Connect(r.Context(), userID, handle); err != nil {
		h.logger.Error("failed to register connection", "user_id", userID, "err", err)
		_ = conn.Close()
		return
	}

	h.logger.Info("session opened", "user_id", userID, "handle", handle)

	// The registry row is deliberately retained on close: staleness is
	// resolved on the next delivery attempt, since disconnect events are
	// not always reliable anyway.
	onClose := func(c *realtime.Client) {
		h.logger.Info("session closed", "user_id", c.UserID, "handle", c.Handle)
	}

	client := realtime.NewClient(h.gateway, conn, handle, userID, h.handleFrame, onClose)
	client.Run()
}

func (h *WSHandler) handleFrame(ctx context.Context, c *realtime.Client, frame []byte) {
	var f wsFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		h.sendError(ctx, c, "malformed frame")
		return
	}

	switch f.Action {
	case actionSendMessage:
		if _, err := h.messaging.SendMessage(ctx, c.UserID, f.RecipientID, f.Text, f.ReplyToID); err != nil {
			h.sendError(ctx, c, err.Error())
		}

	case actionEditMessage:
		if err := h.messaging.EditMessage(ctx, c.UserID, f.MessageID, f.Text); err != nil {
			h.sendError(ctx, c, err.Error())
		}

	default:
		h.sendError(ctx, c, "unknown action: "+f.Action)
	}
}

func (h *WSHandler) sendError(ctx context.Context, c *realtime.Client, msg string) {
	payload, _ := json.Marshal(messaging.ErrorEvent{Type: messaging.EventError, Error: msg})
	if err := h.gateway.Push(ctx, c.Handle, payload); err != nil {
		h.logger.Debug("failed to report socket error", "user_id", c.UserID, "err", err)
	}
}
