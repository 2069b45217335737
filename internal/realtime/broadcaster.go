package realtime

import (
	"ohmguard-notify/internal/models"

	"go.uber.org/zap"
)

// 出站事件名
const (
	EventNewEvent     = "new_event"
	EventEventUpdated = "event_updated"
	EventJoined       = "joined"
)

// Broadcaster 实时广播器
// 向租户房间内的全部会话发布 new_event / event_updated 消息。
// 无确认、无持久化：广播时不在线的会话永远收不到这条消息。
// 成员索引由外部构造注入（避免包级全局状态）。
type Broadcaster struct {
	rooms  *RoomManager
	logger *zap.Logger
}

// NewBroadcaster 创建广播器
func NewBroadcaster(rooms *RoomManager, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		rooms:  rooms,
		logger: logger,
	}
}

// Join 会话加入租户房间（附加式：不影响已加入的其它房间）
func (b *Broadcaster) Join(session Session, tenantID string) {
	b.rooms.Join(tenantID, session)
	b.logger.Info("session joined room",
		zap.String("session_id", session.ID()),
		zap.String("room", RoomName(tenantID)),
	)

	// 回发 joined 确认（只发给该会话）
	if err := session.Send(EventJoined, map[string]interface{}{
		"tenant_id": tenantID,
		"room":      RoomName(tenantID),
	}); err != nil {
		b.logger.Warn("failed to ack join",
			zap.String("session_id", session.ID()),
			zap.Error(err),
		)
	}
}

// Leave 会话离开租户房间（未加入时为 no-op）
func (b *Broadcaster) Leave(sessionID, tenantID string) {
	b.rooms.Leave(tenantID, sessionID)
}

// OnDisconnect 会话断连：移出它加入的全部房间
func (b *Broadcaster) OnDisconnect(sessionID string) {
	left := b.rooms.RemoveSession(sessionID)
	if len(left) > 0 {
		b.logger.Info("session disconnected, removed from rooms",
			zap.String("session_id", sessionID),
			zap.Strings("tenants", left),
		)
	}
}

// BroadcastNewEvent 向租户房间广播新事件
func (b *Broadcaster) BroadcastNewEvent(tenantID string, event *models.Event) {
	b.emit(tenantID, EventNewEvent, map[string]interface{}{
		"type":  EventNewEvent,
		"event": event,
	})
}

// BroadcastEventUpdate 向租户房间广播事件变更（只带变更字段）
func (b *Broadcaster) BroadcastEventUpdate(tenantID, eventID string, update map[string]interface{}) {
	b.emit(tenantID, EventEventUpdated, map[string]interface{}{
		"type":     EventEventUpdated,
		"event_id": eventID,
		"update":   update,
	})
}

// emit 向房间内每个会话投递；单个会话发送失败不影响其余会话
func (b *Broadcaster) emit(tenantID, event string, payload map[string]interface{}) {
	sessions := b.rooms.Sessions(tenantID)
	for _, session := range sessions {
		if err := session.Send(event, payload); err != nil {
			b.logger.Warn("failed to deliver to session",
				zap.String("session_id", session.ID()),
				zap.String("event", event),
				zap.String("room", RoomName(tenantID)),
				zap.Error(err),
			)
		}
	}

	b.logger.Debug("broadcast complete",
		zap.String("event", event),
		zap.String("room", RoomName(tenantID)),
		zap.Int("session_count", len(sessions)),
	)
}
