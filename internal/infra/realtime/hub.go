package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"canteen/internal/domain/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	user model.UserContext
	send chan []byte
	once sync.Once
}

// Hub pushes order events to connected WebSocket clients.
// Merchants receive every event, customers only events of their own orders.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, uc model.UserContext) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("ws upgrade: %w", err)
	}

	c := &client{conn: conn, user: uc, send: make(chan []byte, sendBuffer)}
	h.add(c)
	go h.writeLoop(c)

	//クライアントからのメッセージは読み捨てて切断だけ検知する
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return nil
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.log.Info("websocket connected", zap.String("user_id", c.user.UserID), zap.String("role", string(c.user.Role)))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.once.Do(func() { close(c.send) })
	h.log.Info("websocket disconnected", zap.String("user_id", c.user.UserID))
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write error", zap.String("user_id", c.user.UserID), zap.Error(err))
			go h.remove(c)
			return
		}
	}
}

func (h *Hub) Publish(_ context.Context, ev model.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		if !c.user.IsMerchant() && c.user.UserID != ev.UserID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	//詰まっているクライアントは切る
	for _, c := range slow {
		h.log.Warn("dropping slow websocket client", zap.String("user_id", c.user.UserID))
		h.remove(c)
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.once.Do(func() { close(c.send) })
	}
}
