package notifier

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub fans events out to the websocket connections of individual
// players. A player may hold several connections (multiple tabs); each
// gets every event addressed to them. Events for players with no open
// connection are dropped, the store remains the source of truth.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	outbound   chan addressed

	mu      sync.RWMutex
	players map[string]map[*Client]struct{}

	logger zerolog.Logger
}

type addressed struct {
	playerID string
	data     []byte
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan addressed, 64),
		players:    make(map[string]map[*Client]struct{}),
		logger:     logger.With().Str("component", "notifier").Logger(),
	}
}

// Run owns the registration maps; call it once on its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("notifier hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			conns, ok := h.players[client.playerID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.players[client.playerID] = conns
			}
			conns[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug().Str("player_id", client.playerID).Msg("notifier client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.players[client.playerID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.players, client.playerID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug().Str("player_id", client.playerID).Msg("notifier client disconnected")

		case msg := <-h.outbound:
			h.mu.RLock()
			for client := range h.players[msg.playerID] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer; drop rather than block the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Notify implements Notifier.
func (h *Hub) Notify(playerID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("type", ev.Type).Msg("failed to marshal event")
		return
	}
	h.outbound <- addressed{playerID: playerID, data: data}
}
