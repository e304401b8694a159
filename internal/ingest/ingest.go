// Package ingest dials the inbound box-producer WebSocket, performs
// the auth handshake, and decodes steady-state frames into
// models.BoxUpdate values for the Dispatcher.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rawblock/signalengine/pkg/models"
)

// frame is the envelope every message on the wire shares; the type
// field selects how Data is interpreted.
type frame struct {
	Type  string          `json:"type"`
	Token string          `json:"token,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Config holds the connection parameters for one producer socket.
type Config struct {
	Host  string // host:port, no scheme
	Token string
}

// Client owns the producer connection and feeds decoded updates to
// Handler. One Client serves the whole engine; box updates for every
// pair arrive over the same socket and are routed downstream by the
// Dispatcher, not by this package.
type Client struct {
	cfg     Config
	Handler func(models.BoxUpdate)
}

// New builds a Client. Handler must be set on the returned Client
// before calling Run.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// Run dials once, performs the handshake, and serves frames until the
// connection drops or ctx is cancelled. It does not retry — the
// caller's supervisor loop owns reconnection.
func (c *Client) Run(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.cfg.Host, Path: "/producer"}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial producer: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := c.handshake(conn); err != nil {
		return err
	}

	log.Printf("[Ingest] connected to producer %s", c.cfg.Host)
	return c.serve(conn)
}

// handshake implements the three-frame exchange: read authRequired,
// send auth, read welcome.
func (c *Client) handshake(conn *websocket.Conn) error {
	var first frame
	if err := conn.ReadJSON(&first); err != nil {
		return fmt.Errorf("read authRequired: %w", err)
	}
	if first.Type != "authRequired" {
		return fmt.Errorf("expected authRequired, got %q", first.Type)
	}

	if err := conn.WriteJSON(frame{Type: "auth", Token: c.cfg.Token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	var welcome frame
	if err := conn.ReadJSON(&welcome); err != nil {
		return fmt.Errorf("read welcome: %w", err)
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("auth rejected: got %q", welcome.Type)
	}
	return nil
}

// serve reads steady-state frames until the connection errors or
// closes. A frame that is not valid JSON is logged and dropped; the
// connection stays open.
func (c *Client) serve(conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("producer connection closed: %w", err)
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			log.Printf("[Ingest] malformed frame: %v", err)
			continue
		}

		switch f.Type {
		case "boxUpdate":
			var update models.BoxUpdate
			if err := json.Unmarshal(f.Data, &update); err != nil {
				log.Printf("[Ingest] malformed boxUpdate frame: %v", err)
				continue
			}
			if c.Handler != nil {
				c.Handler(update)
			}

		case "heartbeat":
			if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				continue
			}
			if err := conn.WriteJSON(frame{Type: "heartbeatAck"}); err != nil {
				log.Printf("[Ingest] heartbeat ack failed: %v", err)
			}

		default:
			log.Printf("[Ingest] unknown frame type %q, dropping", f.Type)
		}
	}
}
