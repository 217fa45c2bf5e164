package websocket

import (
	"encoding/json"
	"sync"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// Hub maintains one room per auction id and fans published events out
// to every current member. Publishes to the same room are serialized,
// so subscribers see events in publish order; membership is read once
// at publish time and a join racing a publish may or may not catch it.
type Hub struct {
	rooms map[string]*room
	mu    sync.RWMutex
	log   logger.Logger
}

type room struct {
	mu    sync.Mutex
	conns map[domain.Connection]struct{}
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		log:   log,
	}
}

func (h *Hub) Join(auctionID string, conn domain.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[auctionID]
	if r == nil {
		r = &room{conns: make(map[domain.Connection]struct{})}
		h.rooms[auctionID] = r
	}

	r.mu.Lock()
	r.conns[conn] = struct{}{}
	size := len(r.conns)
	r.mu.Unlock()

	h.log.Info("Connection joined room",
		"auction_id", auctionID, "bidder_id", conn.BidderID(), "room_size", size)
}

func (h *Hub) Leave(auctionID string, conn domain.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[auctionID]
	if r == nil {
		return
	}

	r.mu.Lock()
	delete(r.conns, conn)
	empty := len(r.conns) == 0
	r.mu.Unlock()

	if empty {
		delete(h.rooms, auctionID)
	}

	h.log.Info("Connection left room",
		"auction_id", auctionID, "bidder_id", conn.BidderID())
}

// Publish delivers event to every member of the auction's room. A room
// that does not exist yet simply has no members: events are never
// replayed to later joiners. Send failures are logged and skipped.
func (h *Hub) Publish(auctionID string, event *domain.BidEvent) error {
	h.mu.RLock()
	r := h.rooms[auctionID]
	h.mu.RUnlock()

	if r == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for conn := range r.conns {
		if err := conn.Send(payload); err != nil {
			h.log.Error("Failed to send event",
				"auction_id", auctionID, "bidder_id", conn.BidderID(), "error", err)
		}
	}

	return nil
}

// CloseAll tears the hub down at shutdown, closing every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for auctionID, r := range h.rooms {
		r.mu.Lock()
		for conn := range r.conns {
			if err := conn.Close(); err != nil {
				h.log.Error("Failed to close connection",
					"auction_id", auctionID, "error", err)
			}
		}
		r.mu.Unlock()
		delete(h.rooms, auctionID)
	}

	h.log.Info("All rooms closed")
}
