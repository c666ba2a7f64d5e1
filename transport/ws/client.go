package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"market-live/domain"
	"market-live/domain/event"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size in bytes.
	maxMessageSize = 32 * 1024
)

// Client wraps one websocket connection. Its send channel decouples fan-out
// from the peer's read speed: Consume never blocks, a saturated channel
// drops the event for this connection only.
type Client struct {
	log  *slog.Logger
	conn *websocket.Conn
	id   domain.ConnectionID
	user domain.UserID

	send     chan Frame
	done     chan struct{}
	stopOnce sync.Once
}

func NewClient(log *slog.Logger, conn *websocket.Conn, id domain.ConnectionID, user domain.UserID, sendBuffer int) *Client {
	return &Client{
		log:  log,
		conn: conn,
		id:   id,
		user: user,
		send: make(chan Frame, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() domain.ConnectionID { return c.id }
func (c *Client) User() domain.UserID     { return c.user }

// Consume implements contract.EventSink.
func (c *Client) Consume(_ context.Context, e event.DeliveryEvent) error {
	frame, err := ToFrame(e)
	if err != nil {
		return err
	}
	return c.Push(frame)
}

// Push enqueues a frame for the write pump. Full or closing connections drop
// the frame; realtime delivery is best-effort.
func (c *Client) Push(frame Frame) error {
	select {
	case <-c.done:
		return nil
	case c.send <- frame:
		return nil
	default:
		c.log.Warn("Dropping frame for slow connection",
			slog.String("connection", string(c.id)),
			slog.String("event", frame.Event))
		return nil
	}
}

// ReadPump reads frames from the peer and hands them to route until the
// connection dies. It runs on the handler's goroutine.
func (c *Client) ReadPump(ctx context.Context, route func(ctx context.Context, frame Frame)) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Websocket read failed",
					slog.String("connection", string(c.id)),
					slog.Any("error", err))
			}
			return
		}
		route(ctx, frame)
	}
}

// WritePump drains the send channel to the peer and keeps the connection
// alive with pings. It owns all writes to the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.stopOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
