package handlers

import (
	"errors"
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"auction-platform/internal/domain"
	"auction-platform/internal/infrastructure/websocket"
	"auction-platform/pkg/logger"
)

var upgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler admits watchers into auction rooms. The socket is
// watch-only; bids go through the HTTP gate.
type WebSocketHandler struct {
	store domain.Store
	hub   domain.RoomHub
	log   logger.Logger
}

func NewWebSocketHandler(store domain.Store, hub domain.RoomHub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		store: store,
		hub:   hub,
		log:   log,
	}
}

func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	auctionID := c.Param("id")

	if _, err := h.store.FindAuction(c.Request().Context(), auctionID); err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "auction not found"})
		}
		h.log.Error("Failed to look up auction for watch", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
	}

	// Watching needs no authentication; a logged-in client may
	// identify itself so drops show up attributably in the logs.
	bidderID := c.QueryParam("user_id")

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "auction_id", auctionID, "error", err)
		return nil
	}

	conn := websocket.NewConn(ws, bidderID, auctionID, h.log)

	h.hub.Join(auctionID, conn)

	go conn.WritePump()
	go conn.ReadPump(func() {
		h.hub.Leave(auctionID, conn)
	})

	return nil
}
