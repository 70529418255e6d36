package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/auth"
	ws "github.com/isdelr/bizops-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades connections to the live change feed.
type WebSocketHandler struct {
	hub      *ws.Hub
	topics   map[string]bool
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. topics lists the
// resources clients may follow; allowedOrigins may contain "*".
func NewWebSocketHandler(hub *ws.Hub, topics []string, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, topics: make(map[string]bool, len(topics))}
	for _, t := range topics {
		h.topics[t] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Serve handles the WebSocket connection request. ?resource= narrows the feed.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("resource")
	if topic != "" && !h.topics[topic] {
		response.Error(w, response.CodeBadRequest, "Unknown resource "+topic+".")
		return
	}

	var userID uint
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		userID = claims.UserID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, topic, userID)
	if !h.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleIncomingWSMessage)
		h.hub.Leave(client)
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Uint("user_id", client.UserID).Msg("Error decoding websocket message")
		h.reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case ws.ActionPing:
		h.reply(client, ws.NewMessage(ws.ActionPong, nil))

	case ws.ActionSubscribe:
		resource := ""
		if payload, ok := msg.Payload.(map[string]interface{}); ok {
			resource, _ = payload["resource"].(string)
		}
		if resource != "" && !h.topics[resource] {
			h.reply(client, ws.NewErrorMessage("Unknown resource: "+resource))
			return
		}
		h.hub.Subscribe(client, resource)
		h.reply(client, ws.NewMessage(ws.ActionSubscribed, ws.SubscribePayload{Resource: resource}))

	case ws.ActionUnsubscribe:
		h.hub.Subscribe(client, "")
		h.reply(client, ws.NewMessage(ws.ActionSubscribed, ws.SubscribePayload{}))

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}

// reply queues a direct answer through the hub so it never races a close.
func (h *WebSocketHandler) reply(client *ws.Client, message []byte) {
	h.hub.SendTo(client, message)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}
