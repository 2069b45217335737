package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ohmguard-notify/internal/domain"
	"ohmguard-notify/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// 扇出上限：防止病态数据导致无界推送
	maxTenantTokenFetch = 100
	maxUserTokenFetch   = 10
)

// PushTokensRepository 推送令牌仓库
// 唯一性约束 (user_id, token)：重复注册只刷新 updated_at，不产生重复记录。
type PushTokensRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPushTokensRepository 创建推送令牌仓库
func NewPushTokensRepository(db *sql.DB, logger *zap.Logger) *PushTokensRepository {
	return &PushTokensRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertToken 注册或刷新令牌
// 返回 (tokenID, created)：created=false 表示已存在，只刷新了 updated_at。
func (r *PushTokensRepository) UpsertToken(ctx context.Context, userID string, tenantID *string, token string, deviceType *string) (string, bool, error) {
	if userID == "" {
		return "", false, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if token == "" {
		return "", false, fmt.Errorf("%w: token is required", domain.ErrValidation)
	}

	// 先查 (user_id, token) 是否已存在
	var existingID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM push_tokens WHERE user_id = $1 AND token = $2`,
		userID, token,
	).Scan(&existingID)

	now := time.Now().UTC()

	if err == nil {
		// 已存在：只刷新 updated_at
		if _, err := r.db.ExecContext(ctx,
			`UPDATE push_tokens SET updated_at = $1 WHERE id = $2`,
			now, existingID,
		); err != nil {
			return "", false, fmt.Errorf("failed to refresh push token: %w", err)
		}
		return existingID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("failed to query push token: %w", err)
	}

	// 不存在：插入新记录
	id := uuid.New().String()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO push_tokens (id, user_id, tenant_id, token, device_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, userID, tenantID, token, deviceType, now,
	); err != nil {
		return "", false, fmt.Errorf("failed to insert push token: %w", err)
	}

	return id, true, nil
}

// DeleteToken 删除 (user_id, token) 对应的记录
// 不存在时返回 ErrNotFound（调用方可以区分注销竞态和真正的错误）。
func (r *PushTokensRepository) DeleteToken(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return fmt.Errorf("%w: user id and token are required", domain.ErrValidation)
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM push_tokens WHERE user_id = $1 AND token = $2`,
		userID, token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("push token for user %s: %w", userID, domain.ErrNotFound)
	}

	return nil
}

// TokensForUser 获取用户的全部令牌
func (r *PushTokensRepository) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	return r.queryTokens(ctx,
		`SELECT token FROM push_tokens WHERE user_id = $1 LIMIT $2`,
		userID, maxUserTokenFetch,
	)
}

// TokensForTenant 获取租户所有用户的令牌并集（去重，带扇出上限）
func (r *PushTokensRepository) TokensForTenant(ctx context.Context, tenantID string) ([]string, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}

	return r.queryTokens(ctx,
		`SELECT DISTINCT token FROM push_tokens WHERE tenant_id = $1 LIMIT $2`,
		tenantID, maxTenantTokenFetch,
	)
}

func (r *PushTokensRepository) queryTokens(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query push tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]string, 0)
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate push tokens: %w", err)
	}

	return tokens, nil
}

// TokenModel 按 (user_id, token) 读取完整记录（调试/测试用）
func (r *PushTokensRepository) TokenModel(ctx context.Context, userID, token string) (*models.PushToken, error) {
	var pt models.PushToken
	var tenantID, deviceType sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, tenant_id, token, device_type, created_at, updated_at
		 FROM push_tokens WHERE user_id = $1 AND token = $2`,
		userID, token,
	).Scan(&pt.ID, &pt.UserID, &tenantID, &pt.Token, &deviceType, &pt.CreatedAt, &pt.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("push token for user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query push token: %w", err)
	}

	if tenantID.Valid {
		pt.TenantID = &tenantID.String
	}
	if deviceType.Valid {
		pt.DeviceType = &deviceType.String
	}

	return &pt, nil
}
