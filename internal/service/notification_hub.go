package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
	maxMessageSize      = 512
	notificationChannel = "notification_channel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PubSubMessage 跨实例广播的消息信封
type PubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

type hubClient struct {
	hub    *NotificationHub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// NotificationHub 将新通知实时推送给在线用户。配置了 Redis 时通过 pub/sub 在多实例间广播。
type NotificationHub struct {
	Redis *redis.Client

	mu      sync.RWMutex
	clients map[uint]map[*hubClient]struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewNotificationHub(rdb *redis.Client) *NotificationHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationHub{
		Redis:   rdb,
		clients: make(map[uint]map[*hubClient]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run 订阅 Redis 频道，直到 Stop 被调用
func (h *NotificationHub) Run() {
	if h.Redis == nil {
		return
	}
	pubsub := h.Redis.Subscribe(h.ctx, notificationChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var psMsg PubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.pushLocal(psMsg.TargetUsers, psMsg.Payload)
		}
	}
}

func (h *NotificationHub) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
			monitoring.NotificationSockets.Dec()
		}
		delete(h.clients, userID)
	}
}

// Publish 满足 Publisher 接口
func (h *NotificationHub) Publish(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(WSMessage{Type: "NOTIFICATION", Data: n})
	if err != nil {
		return err
	}

	if h.Redis == nil {
		h.pushLocal([]uint{n.UserID}, payload)
		return nil
	}

	envelope, err := json.Marshal(PubSubMessage{TargetUsers: []uint{n.UserID}, Payload: payload})
	if err != nil {
		return err
	}
	return h.Redis.Publish(ctx, notificationChannel, envelope).Err()
}

func (h *NotificationHub) pushLocal(userIDs []uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range userIDs {
		for c := range h.clients[id] {
			select {
			case c.send <- payload:
			default:
				// 客户端积压过多时丢弃，收件箱仍可拉取
			}
		}
	}
}

// Online 用户是否有在线连接
func (h *NotificationHub) Online(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *NotificationHub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*hubClient]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	monitoring.NotificationSockets.Inc()
}

func (h *NotificationHub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
		monitoring.NotificationSockets.Dec()
	}
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// ServeWS 升级连接并为用户注册推送通道
func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &hubClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 16),
		userID: userID,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

// readPump 只用于感知断开和处理 pong，客户端不会发送业务消息
func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Debug("notification socket closed", zap.Error(err), zap.Uint("userId", c.userID))
			}
			return
		}
	}
}

func (c *hubClient) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
