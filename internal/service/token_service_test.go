package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ohmguard-notify/internal/domain"
)

// recordingTokenStore 记录 upsert/delete 入参
type recordingTokenStore struct {
	fakeTokenStore

	upsertUserID   string
	upsertTenantID *string
	upsertToken    string
	upsertCreated  bool
	upsertErr      error

	deletedToken string
	deleteErr    error
}

func (f *recordingTokenStore) UpsertToken(ctx context.Context, userID string, tenantID *string, token string, deviceType *string) (string, bool, error) {
	if f.upsertErr != nil {
		return "", false, f.upsertErr
	}
	f.upsertUserID = userID
	f.upsertTenantID = tenantID
	f.upsertToken = token
	return uuid.New().String(), f.upsertCreated, nil
}

func (f *recordingTokenStore) DeleteToken(ctx context.Context, userID, token string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedToken = token
	return nil
}

func testScope(tenantID string) domain.Scope {
	return domain.Scope{UserID: uuid.New().String(), TenantID: tenantID, Role: domain.RoleOperator}
}

func TestRegisterToken_Created(t *testing.T) {
	store := &recordingTokenStore{upsertCreated: true}
	svc := NewTokenService(store, &fakePush{}, zap.NewNop())

	scope := testScope("tenant-a")
	tokenID, created, err := svc.RegisterToken(context.Background(), scope, "ExponentPushToken[abc]", nil)

	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, tokenID)
	assert.Equal(t, scope.UserID, store.upsertUserID)
	require.NotNil(t, store.upsertTenantID)
	assert.Equal(t, "tenant-a", *store.upsertTenantID)
}

// 没有租户的用户（如 SUPER_ADMIN）注册时 tenant_id 为 NULL
func TestRegisterToken_NoTenant(t *testing.T) {
	store := &recordingTokenStore{upsertCreated: true}
	svc := NewTokenService(store, &fakePush{}, zap.NewNop())

	_, _, err := svc.RegisterToken(context.Background(), testScope(""), "ExponentPushToken[abc]", nil)

	require.NoError(t, err)
	assert.Nil(t, store.upsertTenantID)
}

func TestRegisterToken_EmptyToken(t *testing.T) {
	svc := NewTokenService(&recordingTokenStore{}, &fakePush{}, zap.NewNop())

	_, _, err := svc.RegisterToken(context.Background(), testScope("tenant-a"), "", nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteToken_NotFoundPropagates(t *testing.T) {
	store := &recordingTokenStore{deleteErr: domain.ErrNotFound}
	svc := NewTokenService(store, &fakePush{}, zap.NewNop())

	err := svc.DeleteToken(context.Background(), testScope("tenant-a"), "ExponentPushToken[gone]")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTestNotification_SendsToAllDevices(t *testing.T) {
	scope := testScope("tenant-a")
	store := &recordingTokenStore{fakeTokenStore: fakeTokenStore{
		userTokens: map[string][]string{
			scope.UserID: {"ExponentPushToken[a]", "ExponentPushToken[b]"},
		},
	}}
	push := &fakePush{}
	svc := NewTokenService(store, push, zap.NewNop())

	count, result, err := svc.TestNotification(context.Background(), scope)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotNil(t, result)

	require.Equal(t, 1, push.callCount())
	call := push.call(0)
	assert.Equal(t, "🔔 Notification Test", call.Title)
	assert.Len(t, call.Tokens, 2)
}

// 没有注册设备：NotFound，不触碰网关
func TestTestNotification_NoTokens(t *testing.T) {
	store := &recordingTokenStore{fakeTokenStore: fakeTokenStore{userTokens: map[string][]string{}}}
	push := &fakePush{}
	svc := NewTokenService(store, push, zap.NewNop())

	count, _, err := svc.TestNotification(context.Background(), testScope("tenant-a"))

	assert.Equal(t, 0, count)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, push.callCount())
}

// 投递失败只降级：仍返回设备数，不返回错误
func TestTestNotification_DeliveryFailureSwallowed(t *testing.T) {
	scope := testScope("tenant-a")
	store := &recordingTokenStore{fakeTokenStore: fakeTokenStore{
		userTokens: map[string][]string{scope.UserID: {"ExponentPushToken[a]"}},
	}}
	push := &fakePush{sendErr: errors.New("gateway down")}
	svc := NewTokenService(store, push, zap.NewNop())

	count, result, err := svc.TestNotification(context.Background(), scope)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Nil(t, result)
}
