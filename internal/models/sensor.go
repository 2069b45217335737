package models

import "time"

// Sensor 传感器领域模型（对应 sensors 表，本服务只读）
// 四级包含层级的引用全部可选且相互独立：传感器可以只挂房间、
// 只挂楼栋、或者什么都不挂。
type Sensor struct {
	ID            string  `json:"id" db:"id"` // UUID
	TenantID      *string `json:"tenant_id,omitempty" db:"tenant_id"`
	Name          *string `json:"name,omitempty" db:"name"`
	Type          *string `json:"type,omitempty" db:"type"` // 如 RADAR
	SerialProduct *string `json:"serial_product,omitempty" db:"serial_product"`
	Status        *string `json:"status,omitempty" db:"status"`

	// 包含层级引用（组织 → 楼栋 → 楼层 → 房间）
	OrganizationID *string `json:"organization_id,omitempty" db:"organization_id"`
	BuildingID     *string `json:"building_id,omitempty" db:"building_id"`
	FloorID        *string `json:"floor_id,omitempty" db:"floor_id"`
	RoomID         *string `json:"room_id,omitempty" db:"room_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// 层级节点类型
const (
	NodeOrganization = "organization"
	NodeBuilding     = "building"
	NodeFloor        = "floor"
	NodeRoom         = "room"
)

// Node 包含层级节点（organizations / buildings / floors / rooms 表，本服务只读）
// RoomNumber 只对房间节点有值，路径渲染时优先于 Name。
type Node struct {
	ID         string  `json:"id" db:"id"`
	Name       string  `json:"name" db:"name"`
	ParentID   *string `json:"parent_id,omitempty" db:"parent_id"`
	RoomNumber *string `json:"room_number,omitempty" db:"room_number"`
}
