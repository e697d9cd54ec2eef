package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"chatlink/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	searchDebounce = 300 * time.Millisecond
)

// inbound is the client-to-server frame shape. Fields beyond Type are
// populated per event.
type inbound struct {
	Type    string `json:"type"`
	Payload struct {
		ChatID     string `json:"chatId"`
		ReceiverID string `json:"receiverId"`
		Query      string `json:"query"`
	} `json:"payload"`
}

type Client struct {
	conn    *websocket.Conn
	userID  string
	send    chan []byte
	manager *Manager

	room   *chat.Room
	search *chat.Debouncer
	cancel context.CancelFunc
}

func newClient(m *Manager, conn *websocket.Conn, userID string) *Client {
	return &Client{
		conn:    conn,
		userID:  userID,
		send:    make(chan []byte, 256),
		manager: m,
		room:    chat.NewRoom(m.chat, userID),
		search:  chat.NewDebouncer(searchDebounce),
	}
}

func (c *Client) start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go c.writePump()
	go c.forwardRoomEvents()
	go c.forwardChatList(ctx)
	go c.readPump(ctx)

	c.enqueue("connected", map[string]any{
		"userId": c.userID,
		"time":   time.Now().Unix(),
	})
}

// forwardChatList streams the caller's chat list projection; every
// store change re-emits the full sorted list.
func (c *Client) forwardChatList(ctx context.Context) {
	lists, err := c.manager.chat.WatchChatList(ctx, c.userID)
	if err != nil {
		log.Printf("chat list watch failed for %s: %v", c.userID, err)
		return
	}
	for list := range lists {
		c.enqueue("chat_list", map[string]any{"chats": list})
	}
}

func (c *Client) forwardRoomEvents() {
	for ev := range c.room.Events() {
		c.enqueue("room", ev)
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.cancel()
		c.room.Close()
		c.search.Stop()
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("WebSocket message unmarshal error: %v", err)
			continue
		}

		switch msg.Type {
		case "select_chat":
			if msg.Payload.ChatID == "" {
				continue
			}
			if err := c.room.Select(ctx, msg.Payload.ChatID); err != nil {
				log.Printf("chat select failed for %s: %v", c.userID, err)
			}
		case "deselect_chat":
			c.room.Deselect()
		case "search":
			c.handleSearch(ctx, msg.Payload.Query)
		case "typing_start", "typing_end":
			c.relayTyping(msg.Type, msg.Payload.ChatID, msg.Payload.ReceiverID)
		case "ping":
			c.enqueue("pong", map[string]any{"time": time.Now().Unix()})
		}
	}
}

// handleSearch debounces directory lookups so a user still typing does
// not hammer the store.
func (c *Client) handleSearch(ctx context.Context, query string) {
	c.search.Do(func() {
		results := c.manager.chat.SearchUsers(ctx, c.userID, query)
		out := make([]map[string]any, 0, len(results))
		for _, p := range results {
			out = append(out, map[string]any{"id": p.ID, "name": p.Name, "photo": p.Photo})
		}
		c.enqueue("search_results", map[string]any{"query": query, "users": out})
	})
}

// relayTyping forwards a typing indicator to the counterpart only,
// never the whole connected set.
func (c *Client) relayTyping(eventType, chatID, receiverID string) {
	if chatID == "" || receiverID == "" {
		return
	}
	c.manager.SendToUser(receiverID, eventType, map[string]any{
		"chatId":    chatID,
		"userId":    c.userID,
		"timestamp": time.Now().Unix(),
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue marshals and queues an envelope on this connection, dropping
// it when the buffer is full.
func (c *Client) enqueue(eventType string, payload any) {
	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("error marshaling WebSocket message: %v", err)
		return
	}
	defer func() { _ = recover() }()
	select {
	case c.send <- data:
	default:
	}
}
