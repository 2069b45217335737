package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ohmguard-notify/internal/domain"
	"ohmguard-notify/internal/models"

	"go.uber.org/zap"
)

const (
	// 列表查询上限（限制响应大小和内存）
	maxEventListLimit     = 500
	defaultEventListLimit = 100
)

// EventsRepository 事件仓库
// 租户隔离在仓库层强制执行：非特权调用方只能读写自己租户的事件，
// 越权访问返回 domain.ErrAccessDenied（与 ErrNotFound 区分）。
type EventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventsRepository 创建事件仓库
func NewEventsRepository(db *sql.DB, logger *zap.Logger) *EventsRepository {
	return &EventsRepository{
		db:     db,
		logger: logger,
	}
}

// EventFilters 事件列表过滤条件
type EventFilters struct {
	Status *string // 事件状态过滤
	Type   *string // 事件类型过滤
	Skip   int     // 跳过条数
	Limit  int     // 返回条数（<=0 用默认值，超过上限截断到上限）
}

const eventColumns = `
	id,
	sensor_id,
	type,
	confidence,
	severity,
	status,
	tenant_id,
	timestamp,
	occurred_at,
	assigned_to,
	notes,
	detail
`

// ============================================
// 基础 CRUD 操作
// ============================================

// CreateEvent 插入新事件
func (r *EventsRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		return fmt.Errorf("%w: event id is required", domain.ErrValidation)
	}
	if !models.ValidEventType(event.Type) {
		return fmt.Errorf("%w: unknown event type %q", domain.ErrValidation, event.Type)
	}
	if !models.ValidSeverity(event.Severity) {
		return fmt.Errorf("%w: unknown severity %q", domain.ErrValidation, event.Severity)
	}
	if event.Confidence < 0 || event.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1]", domain.ErrValidation)
	}

	detail := event.Detail
	if len(detail) == 0 {
		detail = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO events (
			id, sensor_id, type, confidence, severity, status,
			tenant_id, timestamp, occurred_at, assigned_to, notes, detail,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.SensorID,
		event.Type,
		event.Confidence,
		event.Severity,
		event.Status,
		event.TenantID,
		event.Timestamp,
		event.OccurredAt,
		event.AssignedTo,
		event.Notes,
		[]byte(detail),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// GetEvent 根据 id 获取单个事件（带租户作用域检查）
func (r *EventsRepository) GetEvent(ctx context.Context, scope domain.Scope, eventID string) (*models.Event, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", domain.ErrValidation)
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", eventID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query event: %w", err)
	}

	// 租户作用域：先判定存在性，再判定权限（403 与 404 区分）
	tenantID := ""
	if event.TenantID != nil {
		tenantID = *event.TenantID
	}
	if !scope.CanSeeTenant(tenantID) {
		return nil, fmt.Errorf("event %s: %w", eventID, domain.ErrAccessDenied)
	}

	return event, nil
}

// ListEvents 查询事件列表（按检测时间倒序，支持状态/类型过滤和 skip/limit 分页）
func (r *EventsRepository) ListEvents(ctx context.Context, scope domain.Scope, filters EventFilters) ([]*models.Event, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	// 非特权调用方强制按自己的租户过滤
	if !scope.Privileged() && scope.TenantID != "" {
		conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argPos))
		args = append(args, scope.TenantID)
		argPos++
	}

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}
	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	if limit > maxEventListLimit {
		limit = maxEventListLimit
	}
	skip := filters.Skip
	if skip < 0 {
		skip = 0
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY timestamp DESC OFFSET $%d LIMIT $%d`, argPos, argPos+1)
	args = append(args, skip, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// UpdateEvent 部分更新事件（只应用 patch 中非 nil 的字段）
// 状态机约束：终态（RESOLVED / FALSE_ALARM）不允许再变更状态。
func (r *EventsRepository) UpdateEvent(ctx context.Context, scope domain.Scope, eventID string, patch models.EventPatch) (*models.Event, error) {
	// 先读取当前事件：存在性、租户作用域、状态机校验
	current, err := r.GetEvent(ctx, scope, eventID)
	if err != nil {
		return nil, err
	}

	if patch.Empty() {
		return current, nil
	}

	if patch.Status != nil {
		if !models.ValidEventStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown event status %q", domain.ErrValidation, *patch.Status)
		}
		if models.TerminalEventStatus(current.Status) && *patch.Status != current.Status {
			return nil, fmt.Errorf("%w: event %s is already %s", domain.ErrValidation, eventID, current.Status)
		}
	}

	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if patch.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *patch.Status)
		argPos++
	}
	if patch.AssignedTo != nil {
		setClauses = append(setClauses, fmt.Sprintf("assigned_to = $%d", argPos))
		args = append(args, *patch.AssignedTo)
		argPos++
	}
	if patch.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argPos))
		args = append(args, *patch.Notes)
		argPos++
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	query := fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), argPos)
	args = append(args, eventID)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return r.GetEvent(ctx, scope, eventID)
}

// rowScanner 兼容 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var event models.Event
	var sensorID, tenantID, assignedTo, notes sql.NullString
	var occurredAt sql.NullTime
	var detail []byte

	err := row.Scan(
		&event.ID,
		&sensorID,
		&event.Type,
		&event.Confidence,
		&event.Severity,
		&event.Status,
		&tenantID,
		&event.Timestamp,
		&occurredAt,
		&assignedTo,
		&notes,
		&detail,
	)
	if err != nil {
		return nil, err
	}

	if sensorID.Valid {
		event.SensorID = &sensorID.String
	}
	if tenantID.Valid {
		event.TenantID = &tenantID.String
	}
	if occurredAt.Valid {
		t := occurredAt.Time
		event.OccurredAt = &t
	}
	if assignedTo.Valid {
		event.AssignedTo = &assignedTo.String
	}
	if notes.Valid {
		event.Notes = &notes.String
	}
	if len(detail) > 0 {
		event.Detail = json.RawMessage(detail)
	}

	return &event, nil
}
