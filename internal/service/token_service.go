package service

import (
	"context"
	"encoding/json"
	"time"

	"ohmguard-notify/internal/domain"

	"go.uber.org/zap"
)

// TokenService 推送令牌服务接口
type TokenService interface {
	// RegisterToken 注册或刷新当前用户的推送令牌
	// 返回 (tokenID, created)：重复注册同一 (user, token) 时 created=false
	RegisterToken(ctx context.Context, scope domain.Scope, token string, deviceType *string) (string, bool, error)

	// DeleteToken 删除当前用户的推送令牌（不存在返回 ErrNotFound）
	DeleteToken(ctx context.Context, scope domain.Scope, token string) error

	// TestNotification 给当前用户的全部设备发测试推送
	// 用户没有注册令牌时返回 ErrNotFound
	TestNotification(ctx context.Context, scope domain.Scope) (int, json.RawMessage, error)
}

// tokenService 实现
type tokenService struct {
	tokens     TokenStore
	dispatcher PushSender
	logger     *zap.Logger
}

// NewTokenService 创建 TokenService 实例
func NewTokenService(tokens TokenStore, dispatcher PushSender, logger *zap.Logger) TokenService {
	return &tokenService{
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterToken 注册或刷新令牌
func (s *tokenService) RegisterToken(ctx context.Context, scope domain.Scope, token string, deviceType *string) (string, bool, error) {
	if token == "" {
		return "", false, domain.ErrValidation
	}

	var tenantID *string
	if scope.TenantID != "" {
		tenantID = &scope.TenantID
	}

	tokenID, created, err := s.tokens.UpsertToken(ctx, scope.UserID, tenantID, token, deviceType)
	if err != nil {
		return "", false, err
	}

	if created {
		s.logger.Info("[Push] New token registered",
			zap.String("user_id", scope.UserID),
			zap.String("token_prefix", tokenPrefix(token)),
		)
	} else {
		s.logger.Info("[Push] Token updated",
			zap.String("user_id", scope.UserID),
		)
	}

	return tokenID, created, nil
}

// DeleteToken 删除令牌
func (s *tokenService) DeleteToken(ctx context.Context, scope domain.Scope, token string) error {
	if err := s.tokens.DeleteToken(ctx, scope.UserID, token); err != nil {
		return err
	}

	s.logger.Info("[Push] Token deleted", zap.String("user_id", scope.UserID))
	return nil
}

// TestNotification 给当前用户的设备发测试推送
func (s *tokenService) TestNotification(ctx context.Context, scope domain.Scope) (int, json.RawMessage, error) {
	tokens, err := s.tokens.TokensForUser(ctx, scope.UserID)
	if err != nil {
		return 0, nil, err
	}
	if len(tokens) == 0 {
		return 0, nil, domain.ErrNotFound
	}

	result, err := s.dispatcher.Send(ctx, tokens,
		"🔔 Notification Test",
		"Push notifications are working correctly!",
		map[string]interface{}{
			"type":      "test",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	)
	if err != nil {
		// 投递失败不上抛：测试推送同样是尽力而为
		s.logger.Error("[Push] Test notification delivery failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		return len(tokens), nil, nil
	}

	return len(tokens), result, nil
}

// tokenPrefix 日志里只打令牌前缀，避免完整令牌入日志
func tokenPrefix(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
