package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"ohmguard-notify/internal/models"
	"ohmguard-notify/internal/repository"
	"ohmguard-notify/internal/service"

	"go.uber.org/zap"
)

// EventHandler 事件查询/处理 Handler
type EventHandler struct {
	eventService  service.EventService
	notifyService service.NotificationService
	logger        *zap.Logger
}

// NewEventHandler 创建事件 Handler
func NewEventHandler(eventService service.EventService, notifyService service.NotificationService, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService:  eventService,
		notifyService: notifyService,
		logger:        logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/api/events" && r.Method == http.MethodGet:
		h.ListEvents(w, r)
	case strings.HasPrefix(path, "/api/events/"):
		eventID := strings.TrimPrefix(path, "/api/events/")
		if eventID == "" || strings.Contains(eventID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetEvent(w, r, eventID)
		case http.MethodPatch:
			h.UpdateEvent(w, r, eventID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListEvents 查询事件列表
// 查询参数：status, event_type, limit (≤500), skip
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scope, ok := scopeFromReq(w, r)
	if !ok {
		return
	}

	filters := repository.EventFilters{
		Skip:  parseInt(r.URL.Query().Get("skip"), 0),
		Limit: parseInt(r.URL.Query().Get("limit"), 100),
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filters.Status = &status
	}
	if eventType := strings.TrimSpace(r.URL.Query().Get("event_type")); eventType != "" {
		filters.Type = &eventType
	}

	events, err := h.eventService.ListEvents(ctx, scope, filters)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent 查询单个事件
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request, eventID string) {
	scope, ok := scopeFromReq(w, r)
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(r.Context(), scope, eventID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent 部分更新事件（状态/指派/备注）
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request, eventID string) {
	scope, ok := scopeFromReq(w, r)
	if !ok {
		return
	}

	var patch models.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invalid request body"})
		return
	}

	event, err := h.notifyService.OnEventUpdated(r.Context(), scope, eventID, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}
