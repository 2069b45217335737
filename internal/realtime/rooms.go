package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Session 一个已连接的实时会话（由 websocket 传输层实现）
type Session interface {
	ID() string
	// Send 发送一条带事件名的消息；失败只影响该会话
	Send(event string, payload interface{}) error
}

// RoomName 租户广播房间名
func RoomName(tenantID string) string {
	return "tenant_" + tenantID
}

// RoomManager 租户房间成员索引（进程内、非持久化）
// tenantID → {sessionID → Session}。join/leave/disconnect 并发调用，
// 每次变更在互斥锁内完成（按键原子，无跨租户协调）。
// 成员关系是附加式的：一个会话可以同时加入多个租户房间，
// 断连清理会遍历它的全部成员关系。
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]Session
	logger *zap.Logger
}

// NewRoomManager 创建房间成员索引
func NewRoomManager(logger *zap.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]map[string]Session),
		logger: logger,
	}
}

// Join 将会话加入租户房间（房间首次 join 时创建）
func (m *RoomManager) Join(tenantID string, session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[tenantID]
	if !ok {
		room = make(map[string]Session)
		m.rooms[tenantID] = room
	}
	room[session.ID()] = session
}

// Leave 将会话移出租户房间
// 会话本来不在该房间时是幂等的 no-op，不是错误。
func (m *RoomManager) Leave(tenantID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[tenantID]; ok {
		delete(room, sessionID)
		if len(room) == 0 {
			delete(m.rooms, tenantID)
		}
	}
}

// RemoveSession 将会话移出它加入的全部房间（断连清理）
// 返回被移出的租户列表。
func (m *RoomManager) RemoveSession(sessionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	left := []string{}
	for tenantID, room := range m.rooms {
		if _, ok := room[sessionID]; ok {
			delete(room, sessionID)
			left = append(left, tenantID)
			if len(room) == 0 {
				delete(m.rooms, tenantID)
			}
		}
	}
	return left
}

// Sessions 返回租户房间当前的全部会话快照
func (m *RoomManager) Sessions(tenantID string) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[tenantID]
	if !ok {
		return nil
	}
	sessions := make([]Session, 0, len(room))
	for _, s := range room {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count 返回租户房间当前的会话数
func (m *RoomManager) Count(tenantID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[tenantID])
}
