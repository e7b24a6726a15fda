package handler

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 2 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// WSMessage 推送给浏览器的消息
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// WebSocketHub 管理所有浏览器连接。每个连接同时也是一个可关闭的窗口
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	nextID  atomic.Int64
	closed  atomic.Bool
}

type wsClient struct {
	id        int64
	hub       *WebSocketHub
	conn      *websocket.Conn
	send      chan []byte
	writeMu   sync.Mutex
	closeOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewWebSocketHub 创建 WebSocket hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[*wsClient]struct{}),
	}
}

// HandleWebSocket 升级 HTTP 连接并注册客户端
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed: %v", err)
		return
	}

	c := &wsClient{
		id:   h.nextID.Add(1),
		hub:  h,
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}

	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "application closing"), time.Now().Add(wsWriteWait))
		conn.Close()
		return
	}
	log.Printf("[WebSocket] Client %d connected from %s", c.id, r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

// BroadcastMessage 向所有客户端推送消息，慢客户端的消息会被丢弃
func (h *WebSocketHub) BroadcastMessage(messageType string, data any) {
	payload, err := sonic.Marshal(WSMessage{Type: messageType, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// ClientCount 返回当前连接数
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Windows 返回当前连接的快照
func (h *WebSocketHub) Windows() []shutdown.Window {
	h.mu.RLock()
	defer h.mu.RUnlock()
	windows := make([]shutdown.Window, 0, len(h.clients))
	for c := range h.clients {
		windows = append(windows, c)
	}
	return windows
}

// DisconnectAll 断开所有客户端，之后仍接受新连接
func (h *WebSocketHub) DisconnectAll() {
	for _, w := range h.Windows() {
		w.Close()
	}
}

// Close 拒绝新连接并断开所有客户端
func (h *WebSocketHub) Close() error {
	h.mu.Lock()
	h.closed.Store(true)
	h.mu.Unlock()
	h.DisconnectAll()
	return nil
}

// register 在 hub 已关闭时返回 false；与 Close 在同一把锁下检查，
// 保证关闭后的快照不会漏掉刚升级的连接
func (h *WebSocketHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *WebSocketHub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Label 实现 shutdown.Window
func (c *wsClient) Label() string {
	return fmt.Sprintf("ws-%d", c.id)
}

// Close 通知页面应用正在关闭，然后发送关闭帧
func (c *wsClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.hub.remove(c)
		c.stop()

		payload, _ := sonic.Marshal(WSMessage{Type: "app_closing"})
		deadline := time.Now().Add(wsWriteWait)
		if werr := c.write(payload, deadline); werr != nil {
			err = fmt.Errorf("notify client %d: %w", c.id, werr)
		}
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "application closing"), deadline)
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.stop()
		c.conn.Close()
		log.Printf("[WebSocket] Client %d disconnected", c.id)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(msg, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *wsClient) write(payload []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
