package websocket

import (
	"context"

	"github.com/isdelr/bizops-api/internal/models"
	"github.com/rs/zerolog/log"
)

type scopedMessage struct {
	topic   string
	message []byte
}

type directMessage struct {
	client  *Client
	message []byte
}

type subscription struct {
	client *Client
	topic  string
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages for every client regardless of topic.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	scoped    chan scopedMessage
	direct    chan directMessage
	subscribe chan subscription
	count     chan chan int
	done      chan struct{}

	// A map of resource names to the clients following them.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		scoped:        make(chan scopedMessage),
		direct:        make(chan directMessage),
		subscribe:     make(chan subscription),
		count:         make(chan chan int),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
			if client.Topic != "" {
				h.addSubscription(client, client.Topic)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			h.removeSubscription(sub.client)
			sub.client.Topic = sub.topic
			if sub.topic != "" {
				h.addSubscription(sub.client, sub.topic)
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				h.send(client, message)
			}
		case msg := <-h.scoped:
			for client := range h.clients {
				if client.Topic == "" {
					h.send(client, msg.message)
				}
			}
			for client := range h.subscriptions[msg.topic] {
				h.send(client, msg.message)
			}
		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				h.send(msg.client, msg.message)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Join registers client unless the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters client unless the hub has stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Subscribe moves client to follow topic; an empty topic follows everything.
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- subscription{client: client, topic: topic}:
	case <-h.done:
	}
}

// SendTo queues a message for a single registered client.
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// BroadcastTo sends a message to clients following topic and to clients following everything.
func (h *Hub) BroadcastTo(ctx context.Context, topic string, message []byte) error {
	select {
	case h.scoped <- scopedMessage{topic: topic, message: message}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish forwards an activity event to the clients following its resource.
func (h *Hub) Publish(ctx context.Context, event models.Event) error {
	return h.BroadcastTo(ctx, event.Resource, NewMessage(ActionResourceChanged, event))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		log.Warn().Uint("user_id", client.UserID).Msg("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for topic, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
}
