package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one open screen: a kid's tablet, the kitchen display or a
// parent's phone.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	remote string
	send   chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, remote string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		remote: remote,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Run registers the client and serves it until the connection closes. A
// non-nil greeting is written before any broadcast.
func (c *Client) Run(ctx context.Context, greeting []byte) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if greeting != nil {
		if err := c.write(ctx, greeting); err != nil {
			c.hub.logger.Debug("greeting failed", "remote", c.remote, "error", err)
			return
		}
	}

	c.hub.Register(c)
	defer c.hub.Unregister(c)

	go c.pump(ctx)

	// Screens never send anything meaningful; reading only notices the close.
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}

func (c *Client) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Ping(ctx)
}

// pump delivers broadcasts and keeps the connection alive with pings. It
// closes the connection on any write failure so Run's read returns.
func (c *Client) pump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				c.hub.logger.Debug("write failed", "remote", c.remote, "error", err)
				c.conn.CloseNow()
				return
			}
		case <-ticker.C:
			if err := c.ping(ctx); err != nil {
				c.conn.CloseNow()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
