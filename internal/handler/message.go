package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/feed"
	"github.com/wealthforge/network/internal/service"
)

const (
	writeWait  = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait   = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// MessageHandler handles direct-message HTTP requests and the live
// change-event stream.
type MessageHandler struct {
	messages *service.MessageService
	broker   feed.Broker
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages *service.MessageService, broker feed.Broker) *MessageHandler {
	return &MessageHandler{messages: messages, broker: broker}
}

// HandleList returns the conversation with one counterpart, oldest
// first.
// GET /api/messages?with={id}
func (h *MessageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	with := r.URL.Query().Get("with")
	if with == "" {
		writeJSON(w, http.StatusOK, map[string]any{"messages": []MessageDTO{}})
		return
	}
	otherID, err := uuid.Parse(with)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid counterpart id.")
		return
	}

	messages, err := h.messages.History(r.Context(), self.ID, otherID)
	if err != nil {
		slog.Error("list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": toMessageDTOs(messages),
	})
}

// HandleSend creates a message from the caller to a receiver.
// POST /api/messages
// Request: {"receiverId":"...","content":"..."}
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	var req struct {
		ReceiverID string `json:"receiverId"`
		Content    string `json:"content"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver id.")
		return
	}

	message, err := h.messages.Send(r.Context(), self.ID, receiverID, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Receiver not found.")
			return
		}
		slog.Error("send message", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": toMessageDTO(*message),
	})
}

// HandleMarkRead marks a message read on behalf of the caller. The
// service only flips the flag when the caller is the receiver.
// POST /api/messages/{id}/read
// Response: 204 No Content
func (h *MessageHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message id.")
		return
	}

	if err := h.messages.MarkRead(r.Context(), id, self.ID); err != nil {
		slog.Error("mark message read", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleContacts returns the caller's conversation counterparts.
// GET /api/messages/contacts
func (h *MessageHandler) HandleContacts(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	contacts, err := h.messages.Contacts(r.Context(), self.ID)
	if err != nil {
		slog.Error("list contacts", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": toContactDTOs(contacts),
	})
}

// HandleFeed upgrades to a WebSocket and streams change events for one
// conversation. The caller must be a participant; the counterpart comes
// from the "with" query parameter.
// GET /api/messages/ws?with={id}
func (h *MessageHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	otherID, err := uuid.Parse(r.URL.Query().Get("with"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid counterpart id.")
		return
	}

	sub, err := h.broker.Subscribe(r.Context(), feed.Filter{
		Relation: "messages",
		PairA:    self.ID.String(),
		PairB:    otherID.String(),
	})
	if err != nil {
		slog.Error("subscribe to message feed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		slog.Error("upgrade websocket", "error", err)
		return
	}

	go h.readPump(conn, sub)
	h.writePump(conn, sub)
}

// readPump discards inbound frames and keeps the pong deadline fresh.
// Its exit closes the subscription, which ends the write pump.
func (h *MessageHandler) readPump(conn *websocket.Conn, sub *feed.Subscription) {
	defer sub.Close()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards feed events to the socket and pings on a ticker.
func (h *MessageHandler) writePump(conn *websocket.Conn, sub *feed.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
