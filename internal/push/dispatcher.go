package push

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Expo 令牌格式前缀：不匹配的令牌在发送前被过滤掉
// （网关反正会拒绝它们，而且混入坏令牌不能影响对好令牌的投递）
const expoTokenPrefix = "ExponentPushToken"

// Message 推送网关消息（Expo push API 格式）
type Message struct {
	To        string                 `json:"to"`
	Sound     string                 `json:"sound"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Priority  string                 `json:"priority"`
	ChannelID string                 `json:"channelId"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Dispatcher 推送分发器
// 投递是尽力而为的单次尝试：网关错误（网络失败、非 2xx、响应体不合法）
// 一律记录日志并返回空结果，不重试、不排队、不上抛给触发操作。
type Dispatcher struct {
	client    *resty.Client
	channelID string
	logger    *zap.Logger
}

// NewDispatcher 创建推送分发器
// gatewayURL 为推送网关完整地址（如 Expo 的 /--/api/v2/push/send）
func NewDispatcher(gatewayURL string, timeout time.Duration, channelID string, logger *zap.Logger) *Dispatcher {
	client := resty.New().
		SetBaseURL(gatewayURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Encoding", "gzip, deflate").
		SetHeader("Content-Type", "application/json")

	return &Dispatcher{
		client:    client,
		channelID: channelID,
		logger:    logger,
	}
}

// Send 批量发送推送
// 过滤掉格式不合法的令牌后一次性 POST 整批消息；过滤后为空则直接返回，
// 不触碰网关。返回网关的原始响应（仅用于日志），失败时返回 nil 和错误，
// 由调用方决定记录（调用方不应把该错误当作触发操作的失败）。
func (d *Dispatcher) Send(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) (json.RawMessage, error) {
	if len(tokens) == 0 {
		d.logger.Info("[Push] No tokens to send notification to")
		return nil, nil
	}

	messages := make([]Message, 0, len(tokens))
	for _, token := range tokens {
		if !strings.HasPrefix(token, expoTokenPrefix) {
			continue
		}
		messages = append(messages, Message{
			To:        token,
			Sound:     "default",
			Title:     title,
			Body:      body,
			Priority:  "high",
			ChannelID: d.channelID,
			Data:      data,
		})
	}

	if len(messages) == 0 {
		d.logger.Info("[Push] No valid Expo tokens found")
		return nil, nil
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(messages).
		Post("")
	if err != nil {
		d.logger.Error("[Push] Error sending notification", zap.Error(err))
		return nil, err
	}

	if resp.IsError() {
		d.logger.Error("[Push] Gateway returned error status",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
		)
		return nil, nil
	}

	// 响应只做日志用途，不解析业务含义
	raw := json.RawMessage(resp.Body())
	if !json.Valid(raw) {
		d.logger.Error("[Push] Gateway returned malformed response body")
		return nil, nil
	}

	d.logger.Info("[Push] Notification sent",
		zap.Int("message_count", len(messages)),
		zap.ByteString("result", raw),
	)

	return raw, nil
}
