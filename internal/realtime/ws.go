package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsFrame 出站帧：{"event": "...", "data": {...}}
type wsFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// clientMessage 入站帧：{"action": "join_tenant"|"leave_tenant", "tenant_id": "..."}
type clientMessage struct {
	Action   string `json:"action"`
	TenantID string `json:"tenant_id"`
}

// wsSession gorilla websocket 会话（实现 Session 接口）
// gorilla 的连接要求单写者，Send 用互斥锁串行化写入。
type wsSession struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (s *wsSession) ID() string {
	return s.id
}

func (s *wsSession) Send(event string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(wsFrame{Event: event, Data: payload})
}

func (s *wsSession) sendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// WSHandler websocket 接入端点
// 客户端连接后通过 join_tenant / leave_tenant 消息管理房间成员关系，
// 纯文本 "ping" 回 "pong"（移动端保活探测）。
type WSHandler struct {
	upgrader    websocket.Upgrader
	broadcaster *Broadcaster
	logger      *zap.Logger
}

// NewWSHandler 创建 websocket 端点
func NewWSHandler(broadcaster *Broadcaster, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 认证在外部网关层完成，这里不限制来源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := &wsSession{
		id:     uuid.New().String(),
		conn:   conn,
		logger: h.logger,
	}

	h.logger.Info("Client connected", zap.String("session_id", session.id))
	go h.readLoop(session)
}

func (h *WSHandler) readLoop(session *wsSession) {
	defer func() {
		h.broadcaster.OnDisconnect(session.id)
		session.conn.Close()
		h.logger.Info("Client disconnected", zap.String("session_id", session.id))
	}()

	for {
		_, data, err := session.conn.ReadMessage()
		if err != nil {
			return
		}

		// 保活探测
		if string(data) == "ping" {
			if err := session.sendText("pong"); err != nil {
				return
			}
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("ignoring malformed client message",
				zap.String("session_id", session.id),
			)
			continue
		}

		switch msg.Action {
		case "join_tenant":
			if msg.TenantID == "" {
				continue
			}
			h.broadcaster.Join(session, msg.TenantID)
		case "leave_tenant":
			if msg.TenantID == "" {
				continue
			}
			h.broadcaster.Leave(session.id, msg.TenantID)
		}
	}
}
