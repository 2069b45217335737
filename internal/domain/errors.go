package domain

import "errors"

// 错误类别（跨层使用）
// Repository/Service 层返回这些哨兵错误，HTTP 层统一映射为状态码：
// - ErrNotFound     → 404
// - ErrAccessDenied → 403（与 NotFound 区分，调用方可以明确知道是越权而不是不存在）
// - ErrValidation   → 422
// 推送网关的失败不在此列：它们只记录日志，永远不会上抛到触发方。
var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrValidation   = errors.New("validation failed")
)
