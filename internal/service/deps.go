package service

import (
	"context"
	"encoding/json"

	"ohmguard-notify/internal/domain"
	"ohmguard-notify/internal/models"
	"ohmguard-notify/internal/repository"
)

// 服务层对下游的依赖，按使用方定义接口（方便注入 fake 做单元测试）

// EventStore 事件存储
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, scope domain.Scope, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context, scope domain.Scope, filters repository.EventFilters) ([]*models.Event, error)
	UpdateEvent(ctx context.Context, scope domain.Scope, eventID string, patch models.EventPatch) (*models.Event, error)
}

// SensorStore 传感器存储（只读）
type SensorStore interface {
	GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error)
	GetSensorByTenant(ctx context.Context, tenantID string) (*models.Sensor, error)
}

// TokenStore 推送令牌存储
type TokenStore interface {
	UpsertToken(ctx context.Context, userID string, tenantID *string, token string, deviceType *string) (string, bool, error)
	DeleteToken(ctx context.Context, userID, token string) error
	TokensForUser(ctx context.Context, userID string) ([]string, error)
	TokensForTenant(ctx context.Context, tenantID string) ([]string, error)
}

// LocationResolver 位置解析器
type LocationResolver interface {
	Resolve(ctx context.Context, sensor *models.Sensor) (*string, *models.Location)
}

// PushSender 推送分发器
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) (json.RawMessage, error)
}

// EventBroadcaster 实时广播器
type EventBroadcaster interface {
	BroadcastNewEvent(tenantID string, event *models.Event)
	BroadcastEventUpdate(tenantID, eventID string, update map[string]interface{})
}
