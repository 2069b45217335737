package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"ohmguard-notify/internal/service"

	"go.uber.org/zap"
)

// PushTokenHandler 推送令牌 Handler
type PushTokenHandler struct {
	tokenService service.TokenService
	logger       *zap.Logger
}

// NewPushTokenHandler 创建推送令牌 Handler
func NewPushTokenHandler(tokenService service.TokenService, logger *zap.Logger) *PushTokenHandler {
	return &PushTokenHandler{
		tokenService: tokenService,
		logger:       logger,
	}
}

// registerTokenRequest 注册请求体
type registerTokenRequest struct {
	Token      string  `json:"token"`
	DeviceType *string `json:"device_type,omitempty"`
}

// ServeHTTP 实现 http.Handler 接口
func (h *PushTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.RegisterToken(w, r)
	case http.MethodDelete:
		h.DeleteToken(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RegisterToken 注册或刷新令牌
// 新建 → 201 "Token registered"；已存在 → 200 "Token updated"
func (h *PushTokenHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromReq(w, r)
	if !ok {
		return
	}

	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: "token is required"})
		return
	}

	tokenID, created, err := h.tokenService.RegisterToken(r.Context(), scope, req.Token, req.DeviceType)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Token updated"
	status := http.StatusOK
	if created {
		message = "Token registered"
		status = http.StatusCreated
	}

	writeJSON(w, status, map[string]interface{}{
		"message":  message,
		"token_id": tokenID,
	})
}

// DeleteToken 删除令牌（query 参数 token）
func (h *PushTokenHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromReq(w, r)
	if !ok {
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: "token is required"})
		return
	}

	if err := h.tokenService.DeleteToken(r.Context(), scope, token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Token deleted",
	})
}
