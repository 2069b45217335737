package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ohmguard-notify/internal/models"
	"ohmguard-notify/internal/mqtt"
	"ohmguard-notify/internal/service"

	"go.uber.org/zap"
)

// DetectionPayload 传感器上报的检测消息
// 主题格式：ohmguard/<tenant_id>/events
type DetectionPayload struct {
	SensorID   *string         `json:"sensor_id,omitempty"`
	Type       string          `json:"type"`
	Confidence *float64        `json:"confidence,omitempty"`
	Severity   string          `json:"severity,omitempty"`
	OccurredAt *string         `json:"occurred_at,omitempty"` // RFC3339
	Detail     json.RawMessage `json:"detail,omitempty"`
}

// DetectionConsumer MQTT 检测事件接入
// 每条消息驱动一次编排：入库 + 双通道通知。单条消息处理失败
// 只记录日志，不影响后续消息。
type DetectionConsumer struct {
	client        *mqtt.Client
	notifyService service.NotificationService
	topic         string
	qos           byte
	logger        *zap.Logger
}

// NewDetectionConsumer 创建检测事件消费者
func NewDetectionConsumer(client *mqtt.Client, notifyService service.NotificationService, topic string, qos byte, logger *zap.Logger) *DetectionConsumer {
	return &DetectionConsumer{
		client:        client,
		notifyService: notifyService,
		topic:         topic,
		qos:           qos,
		logger:        logger,
	}
}

// Start 订阅检测事件主题
func (c *DetectionConsumer) Start() error {
	if err := c.client.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe detection topic: %w", err)
	}

	c.logger.Info("detection consumer started", zap.String("topic", c.topic))
	return nil
}

// handleMessage 处理单条检测消息
func (c *DetectionConsumer) handleMessage(topic string, payload []byte) error {
	tenantID, err := tenantFromTopic(topic)
	if err != nil {
		return err
	}

	var msg DetectionPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed detection payload: %w", err)
	}

	det := service.Detection{
		SensorID: msg.SensorID,
		Type:     normalizeEventType(msg.Type),
		Severity: msg.Severity,
		Detail:   msg.Detail,
	}
	if msg.Confidence != nil {
		det.Confidence = *msg.Confidence
	} else {
		det.Confidence = 1.0
	}
	if msg.OccurredAt != nil {
		if t, err := time.Parse(time.RFC3339, *msg.OccurredAt); err == nil {
			det.OccurredAt = &t
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	eventID, err := c.notifyService.OnDetected(ctx, tenantID, det)
	if err != nil {
		return fmt.Errorf("failed to process detection for tenant %s: %w", tenantID, err)
	}

	c.logger.Info("detection event ingested",
		zap.String("tenant_id", tenantID),
		zap.String("event_id", eventID),
		zap.String("type", det.Type),
	)

	return nil
}

// tenantFromTopic 从主题第二段取租户ID（ohmguard/<tenant_id>/events）
func tenantFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("unexpected detection topic: %s", topic)
	}
	return parts[1], nil
}

// normalizeEventType 未知类型归一化为 UNKNOWN（上报方固件版本不齐）
func normalizeEventType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if !models.ValidEventType(t) {
		return models.EventTypeUnknown
	}
	return t
}
