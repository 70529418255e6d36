package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Actions exchanged with clients.
const (
	ActionResourceChanged = "resource.changed"
	ActionSubscribe       = "subscribe"
	ActionUnsubscribe     = "unsubscribe"
	ActionSubscribed      = "subscribed"
	ActionPing            = "ping"
	ActionPong            = "pong"
	ActionError           = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// SubscribePayload selects the resource a client wants changes for.
// An empty resource means every resource.
type SubscribePayload struct {
	Resource string `json:"resource"`
}

// NewMessage encodes a message for sending.
func NewMessage(action string, payload interface{}) []byte {
	b, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}

// NewErrorMessage encodes an error notice.
func NewErrorMessage(message string) []byte {
	return NewMessage(ActionError, map[string]string{"message": message})
}
