// Package live 向已连接的 WebSocket 客户端实时广播新落库的遥测记录。
// Hub 挂在存储的插入钩子上：每条记录成功插入后推送一个 Event。
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Event 是推给客户端的一条消息。Kind 是 spans / logs / metrics 之一。
type Event struct {
	Kind   string `json:"kind"`
	Record any    `json:"record"`
}

// subscriberBuffer 是每个连接的待发队列深度。
// 队列满说明客户端消费过慢，断开它而不是阻塞广播。
const subscriberBuffer = 64

// Hub 维护订阅者集合并向其扇出事件。写路径永不阻塞：
// 慢订阅者被移除，广播方不感知。
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	logger *zap.Logger
}

// NewHub 创建空的广播 Hub。
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[chan Event]struct{}),
		logger: logger.With(zap.String("component", "live")),
	}
}

// Publish 向所有订阅者扇出一个事件。实现存储层的 InsertHook 签名。
func (h *Hub) Publish(kind string, record any) {
	ev := Event{Kind: kind, Record: record}

	h.mu.RLock()
	var stale []chan Event
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			stale = append(stale, ch)
		}
	}
	h.mu.RUnlock()

	for _, ch := range stale {
		h.drop(ch)
		h.logger.Warn("dropped slow subscriber")
	}
}

// Subscribers 返回当前连接数。
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) drop(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// ServeHTTP 把 HTTP 请求升级为 WebSocket 并持续推送事件，
// 直到客户端断开或服务停止。
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 本地工具，跨源面板直连
	})
	if err != nil {
		h.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := h.subscribe()
	defer h.drop(ch)
	h.logger.Debug("subscriber connected", zap.Int("total", h.Subscribers()))

	ctx := r.Context()
	// 读循环只为感知断开，推送全靠写循环。
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Warn("marshal event", zap.Error(err))
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
}
