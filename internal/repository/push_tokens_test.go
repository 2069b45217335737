package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ohmguard-notify/internal/domain"
)

func setupMockTokensDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PushTokensRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewPushTokensRepository(db, logger)

	return db, mock, repo
}

// ============================================
// UpsertToken
// ============================================

func TestUpsertToken_CreatesNewRecord(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	ctx := context.Background()
	userID := uuid.New().String()
	tenantID := uuid.New().String()
	token := "ExponentPushToken[abc123]"

	mock.ExpectQuery(`SELECT id FROM push_tokens`).
		WithArgs(userID, token).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec(`INSERT INTO push_tokens`).
		WithArgs(sqlmock.AnyArg(), userID, &tenantID, token, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tokenID, created, err := repo.UpsertToken(ctx, userID, &tenantID, token, nil)

	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, tokenID)

	require.NoError(t, mock.ExpectationsWereMet())
}

// 重复注册同一 (user, token)：只刷新 updated_at，不插入新记录
func TestUpsertToken_RefreshesExisting(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	ctx := context.Background()
	userID := uuid.New().String()
	existingID := uuid.New().String()
	token := "ExponentPushToken[abc123]"

	mock.ExpectQuery(`SELECT id FROM push_tokens`).
		WithArgs(userID, token).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existingID))

	mock.ExpectExec(`UPDATE push_tokens SET updated_at`).
		WithArgs(sqlmock.AnyArg(), existingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tokenID, created, err := repo.UpsertToken(ctx, userID, nil, token, nil)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existingID, tokenID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertToken_MissingUser(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	_, _, err := repo.UpsertToken(context.Background(), "", nil, "ExponentPushToken[x]", nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// DeleteToken
// ============================================

func TestDeleteToken_Success(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	userID := uuid.New().String()
	token := "ExponentPushToken[abc123]"

	mock.ExpectExec(`DELETE FROM push_tokens`).
		WithArgs(userID, token).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteToken(context.Background(), userID, token)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 删除不存在的 (user, token)：明确返回 NotFound，不静默吞掉
func TestDeleteToken_NotFound(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	userID := uuid.New().String()

	mock.ExpectExec(`DELETE FROM push_tokens`).
		WithArgs(userID, "ExponentPushToken[gone]").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteToken(context.Background(), userID, "ExponentPushToken[gone]")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// TokensForUser / TokensForTenant
// ============================================

func TestTokensForUser_Success(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	userID := uuid.New().String()

	mock.ExpectQuery(`SELECT token FROM push_tokens WHERE user_id`).
		WithArgs(userID, maxUserTokenFetch).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).
			AddRow("ExponentPushToken[a]").
			AddRow("ExponentPushToken[b]"))

	tokens, err := repo.TokensForUser(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, []string{"ExponentPushToken[a]", "ExponentPushToken[b]"}, tokens)

	require.NoError(t, mock.ExpectationsWereMet())
}

// 租户令牌并集：去重 + 扇出上限
func TestTokensForTenant_DistinctWithCap(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	tenantID := uuid.New().String()

	mock.ExpectQuery(`SELECT DISTINCT token FROM push_tokens WHERE tenant_id = \$1 LIMIT \$2`).
		WithArgs(tenantID, maxTenantTokenFetch).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).
			AddRow("ExponentPushToken[a]"))

	tokens, err := repo.TokensForTenant(context.Background(), tenantID)

	require.NoError(t, err)
	assert.Equal(t, []string{"ExponentPushToken[a]"}, tokens)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// TokenModel
// ============================================

func TestTokenModel_Success(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	userID := uuid.New().String()
	tenantID := uuid.New().String()
	tokenID := uuid.New().String()
	token := "ExponentPushToken[abc123]"
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, user_id, tenant_id, token, device_type`).
		WithArgs(userID, token).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "tenant_id", "token", "device_type", "created_at", "updated_at",
		}).AddRow(tokenID, userID, tenantID, token, "ios", now, now))

	pt, err := repo.TokenModel(context.Background(), userID, token)

	require.NoError(t, err)
	assert.Equal(t, tokenID, pt.ID)
	assert.Equal(t, userID, pt.UserID)
	require.NotNil(t, pt.TenantID)
	assert.Equal(t, tenantID, *pt.TenantID)
	assert.Equal(t, token, pt.Token)
	require.NotNil(t, pt.DeviceType)
	assert.Equal(t, "ios", *pt.DeviceType)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenModel_NotFound(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	userID := uuid.New().String()

	mock.ExpectQuery(`SELECT id, user_id, tenant_id, token, device_type`).
		WithArgs(userID, "ExponentPushToken[gone]").
		WillReturnError(sql.ErrNoRows)

	pt, err := repo.TokenModel(context.Background(), userID, "ExponentPushToken[gone]")

	assert.Nil(t, pt)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokensForTenant_SkipsEmptyTokens(t *testing.T) {
	db, mock, repo := setupMockTokensDB(t)
	defer db.Close()

	tenantID := uuid.New().String()

	mock.ExpectQuery(`SELECT DISTINCT token`).
		WithArgs(tenantID, maxTenantTokenFetch).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).
			AddRow("").
			AddRow("ExponentPushToken[a]"))

	tokens, err := repo.TokensForTenant(context.Background(), tenantID)

	require.NoError(t, err)
	assert.Equal(t, []string{"ExponentPushToken[a]"}, tokens)

	require.NoError(t, mock.ExpectationsWereMet())
}
