package models

import "time"

// PushToken 推送令牌领域模型（对应 push_tokens 表）
// 唯一性约束：(user_id, token) 最多一条记录。重复注册只刷新 updated_at。
// tenant_id 从用户冗余而来，便于按租户扇出时一次查询拿到全部令牌。
type PushToken struct {
	ID         string    `json:"id" db:"id"` // UUID
	UserID     string    `json:"user_id" db:"user_id"`
	TenantID   *string   `json:"tenant_id,omitempty" db:"tenant_id"`
	Token      string    `json:"token" db:"token"` // 原始令牌串，注册时不校验格式，发送时才过滤
	DeviceType *string   `json:"device_type,omitempty" db:"device_type"` // 'ios' | 'android'，仅信息用途
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
