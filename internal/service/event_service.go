package service

import (
	"context"

	"ohmguard-notify/internal/domain"
	"ohmguard-notify/internal/models"
	"ohmguard-notify/internal/repository"

	"go.uber.org/zap"
)

// EventService 事件查询服务接口
type EventService interface {
	// 查询事件列表（租户过滤、状态/类型过滤、skip/limit 分页，附带位置信息）
	ListEvents(ctx context.Context, scope domain.Scope, filters repository.EventFilters) ([]*models.Event, error)

	// 查询单个事件（附带位置信息）
	GetEvent(ctx context.Context, scope domain.Scope, eventID string) (*models.Event, error)
}

// eventService 实现
type eventService struct {
	events   EventStore
	sensors  SensorStore
	resolver LocationResolver
	logger   *zap.Logger
}

// NewEventService 创建 EventService 实例
func NewEventService(events EventStore, sensors SensorStore, resolver LocationResolver, logger *zap.Logger) EventService {
	return &eventService{
		events:   events,
		sensors:  sensors,
		resolver: resolver,
		logger:   logger,
	}
}

// ListEvents 查询事件列表
func (s *eventService) ListEvents(ctx context.Context, scope domain.Scope, filters repository.EventFilters) ([]*models.Event, error) {
	events, err := s.events.ListEvents(ctx, scope, filters)
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		s.enrich(ctx, event)
	}

	return events, nil
}

// GetEvent 查询单个事件
func (s *eventService) GetEvent(ctx context.Context, scope domain.Scope, eventID string) (*models.Event, error) {
	event, err := s.events.GetEvent(ctx, scope, eventID)
	if err != nil {
		return nil, err
	}

	s.enrich(ctx, event)
	return event, nil
}

// enrich 附加传感器展示字段和位置信息
// 装饰性数据，失败不影响事件本身的返回。
func (s *eventService) enrich(ctx context.Context, event *models.Event) {
	if event.SensorID == nil || *event.SensorID == "" {
		return
	}

	sensor, err := s.sensors.GetSensor(ctx, *event.SensorID)
	if err != nil {
		s.logger.Debug("sensor lookup failed during enrichment",
			zap.String("event_id", event.ID),
			zap.String("sensor_id", *event.SensorID),
			zap.Error(err),
		)
		return
	}

	event.RadarName = sensor.Name
	event.SerialProduct = sensor.SerialProduct
	event.LocationPath, event.Location = s.resolver.Resolve(ctx, sensor)
}
