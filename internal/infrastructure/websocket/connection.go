package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"auction-platform/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var errConnClosed = errors.New("connection closed")

// Conn wraps a websocket connection with a buffered outbound queue so
// publishers never block on a peer. The write pump is the only writer
// on the underlying socket.
type Conn struct {
	ws        *websocket.Conn
	bidderID  string
	auctionID string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       logger.Logger
}

func NewConn(ws *websocket.Conn, bidderID, auctionID string, log logger.Logger) *Conn {
	return &Conn{
		ws:        ws,
		bidderID:  bidderID,
		auctionID: auctionID,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		log:       log,
	}
}

// Send enqueues a payload without blocking. When the queue is full the
// event is dropped: delivery is best effort and a slow subscriber may
// miss updates.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("Dropping event for slow subscriber",
			"auction_id", c.auctionID, "bidder_id", c.bidderID)
		return nil
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.ws.Close()
}

func (c *Conn) BidderID() string {
	return c.bidderID
}

func (c *Conn) AuctionID() string {
	return c.auctionID
}

// WritePump drains the send queue onto the socket and keeps the
// connection alive with pings. Run in its own goroutine.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// ReadPump consumes inbound frames so pongs are processed and the
// close handshake works. The socket is watch-only: bids go through the
// HTTP gate, so inbound payloads are discarded. onClose runs exactly
// once when the peer goes away.
func (c *Conn) ReadPump(onClose func()) {
	defer func() {
		onClose()
		c.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection read failed",
					"auction_id", c.auctionID, "bidder_id", c.bidderID, "error", err)
			}
			return
		}
	}
}
