package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ohmguard-notify/internal/domain"
)

// errorBody 错误响应体
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按错误类别映射状态码
// NotFound → 404，AccessDenied → 403，Validation → 422，其余 → 500
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: err.Error()})
	case errors.Is(err, domain.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, errorBody{Detail: err.Error()})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal server error"})
	}
}

func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return defaultValue
}

// scopeFromReq 从请求头取调用方作用域（由外部认证网关注入）
// X-User-Id 缺失视为未认证。
func scopeFromReq(w http.ResponseWriter, r *http.Request) (domain.Scope, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "user ID is required"})
		return domain.Scope{}, false
	}

	role := r.Header.Get("X-User-Role")
	if role == "" {
		role = domain.RoleViewer
	}

	return domain.Scope{
		UserID:   userID,
		TenantID: r.Header.Get("X-Tenant-Id"),
		Role:     role,
	}, true
}
