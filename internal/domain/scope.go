package domain

// 角色常量（与前端保持一致）
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleSupervisor  = "SUPERVISOR"
	RoleOperator    = "OPERATOR"
	RoleViewer      = "VIEWER"
)

// Scope 调用方的租户作用域（由外部认证层通过请求头注入）
// 非特权调用方只能访问自己租户的数据；SUPER_ADMIN 跨租户。
type Scope struct {
	UserID   string
	TenantID string
	Role     string
}

// Privileged 是否特权角色（绕过租户过滤）
func (s Scope) Privileged() bool {
	return s.Role == RoleSuperAdmin
}

// CanSeeTenant 是否可以访问指定租户的数据
func (s Scope) CanSeeTenant(tenantID string) bool {
	if s.Privileged() {
		return true
	}
	return s.TenantID != "" && s.TenantID == tenantID
}

// CanHandleEvents 是否可以处理事件（确认/解决/备注）
// VIEWER 只读，其余角色可以处理。
func (s Scope) CanHandleEvents() bool {
	switch s.Role {
	case RoleSuperAdmin, RoleTenantAdmin, RoleSupervisor, RoleOperator:
		return true
	default:
		return false
	}
}
