package httpapi

import (
	"net/http"
	"time"

	"ohmguard-notify/internal/service"

	"go.uber.org/zap"
)

// NotifyHandler 事件触发/测试推送/健康检查 Handler
type NotifyHandler struct {
	notifyService service.NotificationService
	tokenService  service.TokenService
	logger        *zap.Logger
}

// NewNotifyHandler 创建 NotifyHandler
func NewNotifyHandler(notifyService service.NotificationService, tokenService service.TokenService, logger *zap.Logger) *NotifyHandler {
	return &NotifyHandler{
		notifyService: notifyService,
		tokenService:  tokenService,
		logger:        logger,
	}
}

// CreateFallEvent 为当前租户创建 FALL 事件并触发通知
func (h *NotifyHandler) CreateFallEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	scope, ok := scopeFromReq(w, r)
	if !ok {
		return
	}

	eventID, err := h.notifyService.OnFallDetected(r.Context(), scope.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Fall event created and notification sent",
		"event_id": eventID,
	})
}

// TestNotification 给当前用户的设备发测试推送
func (h *NotifyHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	scope, ok := scopeFromReq(w, r)
	if !ok {
		return
	}

	count, result, err := h.tokenService.TestNotification(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Test notification sent",
		"tokens_count": count,
		"result":       result,
	})
}

// Health 健康检查
func (h *NotifyHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
