package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建路由
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（websocket 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterNotifyRoutes 注册通知服务全部路由
func (r *Router) RegisterNotifyRoutes(events *EventHandler, tokens *PushTokenHandler, notify *NotifyHandler, ws http.Handler) {
	// 事件查询与处理
	r.HandleHandler("/api/events", events)
	r.HandleHandler("/api/events/", events)

	// 推送令牌注册/注销
	r.HandleHandler("/api/push-tokens", tokens)

	// 事件触发与测试推送
	r.Handle("/api/create-fall-event", notify.CreateFallEvent)
	r.Handle("/api/test-notification", notify.TestNotification)

	// 健康检查
	r.Handle("/api/health", notify.Health)

	// websocket 实时通道
	if ws != nil {
		r.HandleHandler("/ws", ws)
	}
}
