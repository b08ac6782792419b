// Package realtime pushes directory and message inserts to connected
// dashboard clients over websockets. Each client receives only the
// frames its hierarchical standing entitles it to see: messages are
// re-classified and filtered by audience, members by visibility.
package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/directory"
	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/messaging"
	"github.com/impulso-digital/plataforma/internal/shared/auth"
	"github.com/impulso-digital/plataforma/internal/shared/metrics"
)

const clientSendBuffer = 32

// Frame is one outbound websocket payload.
type Frame struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Client is one connected dashboard session. The hub owns the lifetime
// of the send channel: it closes it on unregister or when the client
// falls too far behind.
type Client struct {
	actor    *auth.Actor
	position hierarchy.Position
	rank     int
	send     chan []byte
}

// NewClient creates a hub client for an authenticated actor. The rank
// comes from the role catalog at handshake time.
func NewClient(actor *auth.Actor, rank int) *Client {
	return &Client{
		actor: actor,
		position: hierarchy.Position{
			Role:      hierarchy.Role(actor.Role),
			Territory: actor.Territory,
		},
		rank: rank,
		send: make(chan []byte, clientSendBuffer),
	}
}

// Receive returns the channel the hub delivers frames on. Closed when
// the client is unregistered.
func (c *Client) Receive() <-chan []byte {
	return c.send
}

// delivery is one frame plus the predicate deciding which clients get
// it. Filtering runs inside the hub loop so the client map needs no
// lock.
type delivery struct {
	frame   []byte
	include func(c *Client) bool
}

// Hub fans deliveries out to registered clients.
type Hub struct {
	engine     *hierarchy.Engine
	classifier *messaging.Classifier
	logger     zerolog.Logger

	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	done       chan struct{}

	connected atomic.Int64
}

// NewHub creates a realtime hub
func NewHub(engine *hierarchy.Engine, classifier *messaging.Classifier, logger zerolog.Logger) *Hub {
	return &Hub{
		engine:     engine,
		classifier: classifier,
		logger:     logger.With().Str("component", "realtime").Logger(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 64),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and deliveries until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*Client]bool)

	defer func() {
		// Closing done releases any goroutine blocked on Register,
		// Unregister or a delivery.
		close(h.done)
		for client := range clients {
			close(client.send)
		}
		h.connected.Store(0)
		metrics.RecordRealtimeClients(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			clients[client] = true
			h.connected.Store(int64(len(clients)))
			metrics.RecordRealtimeClients(len(clients))

		case client := <-h.unregister:
			if clients[client] {
				delete(clients, client)
				close(client.send)
			}
			h.connected.Store(int64(len(clients)))
			metrics.RecordRealtimeClients(len(clients))

		case d := <-h.deliveries:
			for client := range clients {
				if !d.include(client) {
					continue
				}
				select {
				case client.send <- d.frame:
				default:
					// Client is not draining; drop it rather
					// than stall everyone else.
					delete(clients, client)
					close(client.send)
					h.logger.Warn().
						Str("actor_id", client.actor.ID.String()).
						Msg("dropping slow realtime client")
				}
			}
			h.connected.Store(int64(len(clients)))
			metrics.RecordRealtimeClients(len(clients))
		}
	}
}

// Register adds a client to the hub. No-op after the hub stops.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub. No-op after the hub stops,
// so connection teardown never hangs on a stopped hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

// DeliverMessage routes a new message to every connected client inside
// its audience, plus the sender.
func (h *Hub) DeliverMessage(msg *messaging.Message) {
	decision, err := h.classifier.Classify(msg)
	if err != nil {
		h.logger.Error().Err(err).
			Str("message_id", msg.ID).
			Msg("cannot classify message for realtime delivery")
		return
	}

	frame, err := encodeFrame("message", msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode message frame")
		return
	}

	h.enqueue(delivery{
		frame: frame,
		include: func(c *Client) bool {
			if c.actor.ID == msg.SenderID {
				return true
			}
			return messaging.AudienceIncludes(decision, c.rank,
				c.actor.Territory.Department, c.actor.Territory.Municipality)
		},
	})
}

// DeliverMember pushes a directory change to every client whose
// visibility covers the member.
func (h *Hub) DeliverMember(member *directory.Member) {
	frame, err := encodeFrame("member", member)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode member frame")
		return
	}

	position := member.Position()
	h.enqueue(delivery{
		frame: frame,
		include: func(c *Client) bool {
			return h.engine.CanView(c.position, position)
		},
	})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliveries <- d:
	case <-h.done:
	}
}

func encodeFrame(kind string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Kind: kind, Data: data})
}
