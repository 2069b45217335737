package service

import (
	"context"
	"encoding/json"
	"time"

	"ohmguard-notify/internal/domain"
	"ohmguard-notify/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 扇出（广播 + 推送）的后台超时：与触发请求解耦，请求在持久化成功后即可返回
const fanoutTimeout = 15 * time.Second

const unknownLocation = "Unknown location"

// Detection 一次检测上报（来自传感器接入或合成触发）
type Detection struct {
	SensorID   *string         // 为 nil 时取租户的第一个传感器
	Type       string          // FALL / PRE_FALL / ...
	Confidence float64         // [0,1]
	Severity   string          // LOW / MED / HIGH
	OccurredAt *time.Time      // 为 nil 时取当前时间
	Detail     json.RawMessage // 传感器附加数据，原样入库
}

// NotificationService 通知编排服务接口
// 事件创建：持久化必须成功（失败上抛中止整个操作）；之后实时广播和
// 推送扇出并发执行、互相独立，任一失败只记录日志，不影响已落库的
// 事件，也不作为创建操作的失败上报。
// 事件更新：持久化必须成功，然后只做房间广播（更新不发推送）。
type NotificationService interface {
	// OnFallDetected 为租户创建一个 FALL 事件并触发双通道通知，返回事件ID
	OnFallDetected(ctx context.Context, tenantID string) (string, error)

	// OnDetected 通用检测事件入口（MQTT 接入使用）
	OnDetected(ctx context.Context, tenantID string, det Detection) (string, error)

	// OnEventUpdated 应用部分更新并广播变更（不发推送）
	OnEventUpdated(ctx context.Context, scope domain.Scope, eventID string, patch models.EventPatch) (*models.Event, error)
}

// notificationService 实现
type notificationService struct {
	events      EventStore
	sensors     SensorStore
	tokens      TokenStore
	resolver    LocationResolver
	dispatcher  PushSender
	broadcaster EventBroadcaster
	logger      *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(
	events EventStore,
	sensors SensorStore,
	tokens TokenStore,
	resolver LocationResolver,
	dispatcher PushSender,
	broadcaster EventBroadcaster,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		events:      events,
		sensors:     sensors,
		tokens:      tokens,
		resolver:    resolver,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// OnFallDetected 合成 FALL 事件触发（也用于端到端联调）
func (s *notificationService) OnFallDetected(ctx context.Context, tenantID string) (string, error) {
	return s.OnDetected(ctx, tenantID, Detection{
		Type:       models.EventTypeFall,
		Severity:   models.SeverityHigh,
		Confidence: 0.95,
	})
}

// OnDetected 创建检测事件并触发双通道通知
func (s *notificationService) OnDetected(ctx context.Context, tenantID string, det Detection) (string, error) {
	if tenantID == "" {
		return "", domain.ErrValidation
	}

	// 1. 解析传感器（没有传感器的租户无法定位事件，直接 NotFound）
	var sensor *models.Sensor
	var err error
	if det.SensorID != nil && *det.SensorID != "" {
		sensor, err = s.sensors.GetSensor(ctx, *det.SensorID)
	} else {
		sensor, err = s.sensors.GetSensorByTenant(ctx, tenantID)
	}
	if err != nil {
		return "", err
	}

	// 2. 构造事件（服务端分配 ID 和时间戳）
	now := time.Now().UTC()
	occurredAt := det.OccurredAt
	if occurredAt == nil {
		occurredAt = &now
	}
	severity := det.Severity
	if severity == "" {
		severity = models.SeverityLow
	}

	event := &models.Event{
		ID:         uuid.New().String(),
		SensorID:   &sensor.ID,
		Type:       det.Type,
		Confidence: det.Confidence,
		Severity:   severity,
		Status:     models.EventStatusNew,
		TenantID:   &tenantID,
		Timestamp:  now,
		OccurredAt: occurredAt,
		Detail:     det.Detail,
	}

	// 3. 持久化（同步，必须成功）
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return "", err
	}

	// 4. 通知文案用的位置（与读路径的装饰相互独立）
	locationText := unknownLocation
	if path, _ := s.resolver.Resolve(ctx, sensor); path != nil {
		locationText = *path
	}

	// 5. 双通道扇出：并发、独立、不阻塞触发请求
	go s.broadcastFanout(tenantID, event)
	go s.pushFanout(tenantID, event, locationText)

	s.logger.Info("[Event] Detection event created",
		zap.String("event_id", event.ID),
		zap.String("tenant_id", tenantID),
		zap.String("type", event.Type),
	)

	return event.ID, nil
}

// OnEventUpdated 应用部分更新并广播变更
func (s *notificationService) OnEventUpdated(ctx context.Context, scope domain.Scope, eventID string, patch models.EventPatch) (*models.Event, error) {
	if !scope.CanHandleEvents() {
		return nil, domain.ErrAccessDenied
	}

	// 持久化（同步，必须成功）
	updated, err := s.events.UpdateEvent(ctx, scope, eventID, patch)
	if err != nil {
		return nil, err
	}

	// 广播变更（更新不发推送）
	if !patch.Empty() && updated.TenantID != nil {
		tenantID := *updated.TenantID
		fields := patch.Fields()
		go func() {
			defer s.recoverFanout("broadcast", eventID)
			s.broadcaster.BroadcastEventUpdate(tenantID, eventID, fields)
		}()
	}

	return updated, nil
}

// broadcastFanout 房间广播通道
func (s *notificationService) broadcastFanout(tenantID string, event *models.Event) {
	defer s.recoverFanout("broadcast", event.ID)
	s.broadcaster.BroadcastNewEvent(tenantID, event)
}

// pushFanout 推送通道：查租户全部令牌 → 单次批量投递
// 任何一步失败只记录日志（网关是尽力而为的投递通道）。
func (s *notificationService) pushFanout(tenantID string, event *models.Event, locationText string) {
	defer s.recoverFanout("push", event.ID)

	ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
	defer cancel()

	tokens, err := s.tokens.TokensForTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("[Push] Failed to load tenant tokens",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return
	}
	if len(tokens) == 0 {
		s.logger.Info("[Push] No registered devices for tenant",
			zap.String("tenant_id", tenantID),
		)
		return
	}

	_, err = s.dispatcher.Send(ctx, tokens,
		"🚨 FALL ALERT DETECTED",
		"Fall detected - "+locationText,
		map[string]interface{}{
			"type":      "new_event",
			"eventId":   event.ID,
			"eventType": event.Type,
			"location":  locationText,
			"severity":  event.Severity,
		},
	)
	if err != nil {
		// 上游投递失败：记录，不上抛
		s.logger.Error("[Push] Upstream delivery failure",
			zap.String("event_id", event.ID),
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("[Push] Sent notification to tenant devices",
		zap.String("tenant_id", tenantID),
		zap.Int("token_count", len(tokens)),
	)
}

func (s *notificationService) recoverFanout(channel, eventID string) {
	if r := recover(); r != nil {
		s.logger.Error("fanout panic recovered",
			zap.String("channel", channel),
			zap.String("event_id", eventID),
			zap.Any("panic", r),
		)
	}
}
