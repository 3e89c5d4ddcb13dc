package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/usecase"
	"portfoliochat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Client is one WebSocket connection bound to a chat session. It implements
// usecase.SessionSink by queueing JSON events for the write pump.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	session   *usecase.Session
	done      chan struct{}
	closeOnce sync.Once
}

var _ usecase.SessionSink = (*Client)(nil)

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) Attach(session *usecase.Session) {
	c.session = session
}

// Close stops the write pump, which closes the connection; the read pump
// then fails and ends the session.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) enqueue(event WSEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to encode %s event for %s: %v", event.Type, c.UserID, err)
		return
	}
	select {
	case c.Send <- payload:
	case <-c.done:
	default:
		// a client this far behind gets a fresh snapshot on reconnect
		logger.Warn("Send buffer full, closing connection: user=%s", c.UserID)
		c.Close()
	}
}

func (c *Client) Conversations(convs []*entity.Conversation) {
	c.enqueue(WSEvent{Type: MessageTypeConversations, Data: convs})
}

func (c *Client) Messages(conversationID string, msgs []*entity.Message) {
	c.enqueue(WSEvent{Type: MessageTypeMessages, ConversationID: conversationID, Data: msgs})
}

func (c *Client) Typing(conversationID string, uids []string) {
	c.enqueue(WSEvent{Type: MessageTypeTyping, ConversationID: conversationID, Data: TypingData{UIDs: uids}})
}

func (c *Client) OnlineUsers(uids []string) {
	c.enqueue(WSEvent{Type: MessageTypePresence, Data: PresenceData{Online: uids}})
}

// ReadPump reads inbound messages until the connection drops, then ends
// the session, which marks the user offline.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-ctx.Done():
		}
		if c.session != nil {
			c.session.End()
		}
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error for %s: %v", c.UserID, err)
			}
			return
		}
		if reply := HandleMessage(ctx, c.session, message); reply != nil {
			c.enqueue(*reply)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("WebSocket write error for %s: %v", c.UserID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
