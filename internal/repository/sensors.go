package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ohmguard-notify/internal/domain"
	"ohmguard-notify/internal/models"

	"go.uber.org/zap"
)

// SensorsRepository 传感器与包含层级仓库（本服务只读）
type SensorsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSensorsRepository 创建传感器仓库
func NewSensorsRepository(db *sql.DB, logger *zap.Logger) *SensorsRepository {
	return &SensorsRepository{
		db:     db,
		logger: logger,
	}
}

const sensorColumns = `
	id,
	tenant_id,
	name,
	type,
	serial_product,
	status,
	organization_id,
	building_id,
	floor_id,
	room_id
`

// GetSensor 根据 id 获取传感器
func (r *SensorsRepository) GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("%w: sensor id is required", domain.ErrValidation)
	}

	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE id = $1`

	sensor, err := scanSensor(r.db.QueryRowContext(ctx, query, sensorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sensor %s: %w", sensorID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query sensor: %w", err)
	}

	return sensor, nil
}

// GetSensorByTenant 获取租户的第一个传感器（合成事件触发用）
func (r *SensorsRepository) GetSensorByTenant(ctx context.Context, tenantID string) (*models.Sensor, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}

	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE tenant_id = $1 ORDER BY created_at LIMIT 1`

	sensor, err := scanSensor(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no sensor for tenant %s: %w", tenantID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query sensor by tenant: %w", err)
	}

	return sensor, nil
}

// GetNode 获取包含层级节点（organization / building / floor / room）
// 每级一张表；房间表额外带 room_number。
func (r *SensorsRepository) GetNode(ctx context.Context, level, nodeID string) (*models.Node, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("%w: node id is required", domain.ErrValidation)
	}

	var query string
	switch level {
	case models.NodeOrganization:
		query = `SELECT id, name, NULL AS parent_id, NULL AS room_number FROM organizations WHERE id = $1`
	case models.NodeBuilding:
		query = `SELECT id, name, organization_id AS parent_id, NULL AS room_number FROM buildings WHERE id = $1`
	case models.NodeFloor:
		query = `SELECT id, name, building_id AS parent_id, NULL AS room_number FROM floors WHERE id = $1`
	case models.NodeRoom:
		query = `SELECT id, name, floor_id AS parent_id, room_number FROM rooms WHERE id = $1`
	default:
		return nil, fmt.Errorf("%w: unknown node level %q", domain.ErrValidation, level)
	}

	var node models.Node
	var parentID, roomNumber sql.NullString
	err := r.db.QueryRowContext(ctx, query, nodeID).Scan(&node.ID, &node.Name, &parentID, &roomNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", level, nodeID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query %s node: %w", level, err)
	}

	if parentID.Valid {
		node.ParentID = &parentID.String
	}
	if roomNumber.Valid {
		node.RoomNumber = &roomNumber.String
	}

	return &node, nil
}

func scanSensor(row rowScanner) (*models.Sensor, error) {
	var sensor models.Sensor
	var tenantID, name, sensorType, serialProduct, status sql.NullString
	var organizationID, buildingID, floorID, roomID sql.NullString

	err := row.Scan(
		&sensor.ID,
		&tenantID,
		&name,
		&sensorType,
		&serialProduct,
		&status,
		&organizationID,
		&buildingID,
		&floorID,
		&roomID,
	)
	if err != nil {
		return nil, err
	}

	assign := func(dst **string, src sql.NullString) {
		if src.Valid {
			v := src.String
			*dst = &v
		}
	}
	assign(&sensor.TenantID, tenantID)
	assign(&sensor.Name, name)
	assign(&sensor.Type, sensorType)
	assign(&sensor.SerialProduct, serialProduct)
	assign(&sensor.Status, status)
	assign(&sensor.OrganizationID, organizationID)
	assign(&sensor.BuildingID, buildingID)
	assign(&sensor.FloorID, floorID)
	assign(&sensor.RoomID, roomID)

	return &sensor, nil
}
