package terminal

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/antibyte/turtleterm/pkg/auth"
	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/resources"
	"github.com/antibyte/turtleterm/pkg/shared"

	"github.com/gorilla/websocket"
)

const replyTimeout = 100 * time.Millisecond

var newline = []byte{'\n'}

// Client is one websocket connection bound to a session. Everything sent
// to the browser goes through the session's output channel so replies
// stay ordered after the graphics of the run that produced them.
type Client struct {
	conn      *websocket.Conn
	handler   *Handler
	session   *resources.Session
	identity  auth.Identity
	ipAddress string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// reply queues msg for the browser. It gives up when the output stays full
// or the client is gone.
func (c *Client) reply(msg shared.Message) {
	if msg.SessionID == "" {
		msg.SessionID = c.session.ID
	}
	select {
	case c.session.Output <- msg:
	case <-c.ctx.Done():
	case <-time.After(replyTimeout):
		logger.WebSocketWarn("Output full for session %s, dropped message type %d", c.session.ID, msg.Type)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}

// readPump decodes requests until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.handler.removeClient(c)
		c.close()
		logger.WebSocketInfo("Client disconnected: session %s", c.session.ID)
	}()

	c.conn.SetReadLimit(getMaxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.WebSocketWarn("Unexpected close for session %s: %v", c.session.ID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := c.handler.limiter.Allow(c.session.ID); err != nil {
			logger.WebSocketWarn("%v", err)
			c.reply(shared.Message{Type: shared.MessageTypeError, Content: "Too many requests, slow down"})
			continue
		}

		req, err := decodeRequest(data)
		if err != nil {
			logger.WebSocketDebug("Bad request from session %s: %v", c.session.ID, err)
			c.reply(shared.Message{Type: shared.MessageTypeError, Content: "Invalid request: " + err.Error()})
			continue
		}
		c.handleRequest(req)
	}
}

// writePump forwards session output and keeps the connection alive.
// Queued messages are batched into one frame separated by newlines.
func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.session.Output:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if err := writeJSON(w, msg); err != nil {
				return
			}
			n := len(c.session.Output)
			for i := 0; i < n; i++ {
				w.Write(newline)
				if err := writeJSON(w, <-c.session.Output); err != nil {
					return
				}
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.WebSocketDebug("Ping failed for session %s: %v", c.session.ID, err)
				return
			}
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func writeJSON(w io.Writer, msg shared.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.WebSocketError("Failed to encode message type %d: %v", msg.Type, err)
		return nil
	}
	_, err = w.Write(data)
	return err
}
