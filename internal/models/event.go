package models

import (
	"encoding/json"
	"time"
)

// 事件类型
const (
	EventTypeFall       = "FALL"
	EventTypePreFall    = "PRE_FALL"
	EventTypePresence   = "PRESENCE"
	EventTypeInactivity = "INACTIVITY"
	EventTypeUnknown    = "UNKNOWN"
)

// 严重级别
const (
	SeverityLow  = "LOW"
	SeverityMed  = "MED"
	SeverityHigh = "HIGH"
)

// 事件状态（状态机：NEW → ACK → RESOLVED，或 NEW → FALSE_ALARM）
// RESOLVED 和 FALSE_ALARM 为终态，不允许再变更。
const (
	EventStatusNew        = "NEW"
	EventStatusAck        = "ACK"
	EventStatusResolved   = "RESOLVED"
	EventStatusFalseAlarm = "FALSE_ALARM"
)

// ValidEventType 事件类型是否合法
func ValidEventType(t string) bool {
	switch t {
	case EventTypeFall, EventTypePreFall, EventTypePresence, EventTypeInactivity, EventTypeUnknown:
		return true
	}
	return false
}

// ValidSeverity 严重级别是否合法
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMed, SeverityHigh:
		return true
	}
	return false
}

// ValidEventStatus 事件状态是否合法
func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusNew, EventStatusAck, EventStatusResolved, EventStatusFalseAlarm:
		return true
	}
	return false
}

// TerminalEventStatus 是否终态
func TerminalEventStatus(s string) bool {
	return s == EventStatusResolved || s == EventStatusFalseAlarm
}

// Event 检测事件领域模型（对应 events 表）
type Event struct {
	ID         string     `json:"id" db:"id"`                        // UUID
	SensorID   *string    `json:"sensor_id,omitempty" db:"sensor_id"` // 关联传感器
	Type       string     `json:"type" db:"type"`                    // FALL / PRE_FALL / PRESENCE / INACTIVITY / UNKNOWN
	Confidence float64    `json:"confidence" db:"confidence"`        // [0,1]
	Severity   string     `json:"severity" db:"severity"`            // LOW / MED / HIGH
	Status     string     `json:"status" db:"status"`                // NEW / ACK / RESOLVED / FALSE_ALARM
	TenantID   *string    `json:"tenant_id,omitempty" db:"tenant_id"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`            // 检测时间（入库时间）
	OccurredAt *time.Time `json:"occurred_at,omitempty" db:"occurred_at"` // 发生时间
	AssignedTo *string    `json:"assigned_to,omitempty" db:"assigned_to"` // 指派处理人
	Notes      *string    `json:"notes,omitempty" db:"notes"`

	// 传感器上报的附加数据（presence_status、target_count、active_regions 等）
	// 字段由上报方决定，DB 只保存（JSONB）
	Detail json.RawMessage `json:"detail,omitempty" db:"detail"`

	// ============================================
	// 以下为读取/广播时附加的派生字段，不持久化
	// ============================================
	RadarName     *string   `json:"radar_name,omitempty" db:"-"`
	SerialProduct *string   `json:"serial_product,omitempty" db:"-"`
	LocationPath  *string   `json:"location_path,omitempty" db:"-"` // 如 "EHPAD Les Oliviers > Building A > Floor 1 > Room 101"
	Location      *Location `json:"location,omitempty" db:"-"`
}

// Location 结构化位置（按 组织 → 楼栋 → 楼层 → 房间 解析）
type Location struct {
	OrganizationName string `json:"organization_name,omitempty"`
	BuildingName     string `json:"building_name,omitempty"`
	FloorName        string `json:"floor_name,omitempty"`
	RoomNumber       string `json:"room_number,omitempty"`
}

// Empty 是否没有任何层级被解析出来
func (l *Location) Empty() bool {
	return l.OrganizationName == "" && l.BuildingName == "" && l.FloorName == "" && l.RoomNumber == ""
}

// EventPatch 事件部分更新（nil 字段表示不修改，而不是清空）
type EventPatch struct {
	Status     *string `json:"status,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// Empty 是否没有任何字段需要更新
func (p *EventPatch) Empty() bool {
	return p.Status == nil && p.AssignedTo == nil && p.Notes == nil
}

// Fields 返回非 nil 字段的 map（用于 event_updated 广播负载）
func (p *EventPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.AssignedTo != nil {
		fields["assigned_to"] = *p.AssignedTo
	}
	if p.Notes != nil {
		fields["notes"] = *p.Notes
	}
	return fields
}
