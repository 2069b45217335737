package location

import (
	"context"
	"encoding/json"
	"time"

	"ohmguard-notify/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NodeCache 包含层级节点的 Redis 缓存
// 层级节点基本不变，缓存短 TTL 即可大幅减少每次事件读取的 DB 查询。
// 缓存故障不影响解析：miss 和 Redis 错误都按 miss 处理。
type NodeCache struct {
	redisClient *redis.Client
	keyPrefix   string // 如 "ohmguard:node:"
	ttl         time.Duration
	logger      *zap.Logger
}

// NewNodeCache 创建节点缓存
func NewNodeCache(redisClient *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *NodeCache {
	return &NodeCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		logger:      logger,
	}
}

// key 格式：<prefix><level>:<nodeID>，如 "ohmguard:node:room:xxx"
func (c *NodeCache) key(level, nodeID string) string {
	return c.keyPrefix + level + ":" + nodeID
}

// Get 读取缓存节点，第二个返回值表示是否命中
func (c *NodeCache) Get(ctx context.Context, level, nodeID string) (*models.Node, bool) {
	data, err := c.redisClient.Get(ctx, c.key(level, nodeID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("node cache read failed",
				zap.String("level", level),
				zap.String("node_id", nodeID),
				zap.Error(err),
			)
		}
		return nil, false
	}

	var node models.Node
	if err := json.Unmarshal(data, &node); err != nil {
		c.logger.Warn("node cache contains invalid JSON, dropping entry",
			zap.String("level", level),
			zap.String("node_id", nodeID),
			zap.Error(err),
		)
		c.redisClient.Del(ctx, c.key(level, nodeID))
		return nil, false
	}

	return &node, true
}

// Set 写入缓存节点（失败只记录日志）
func (c *NodeCache) Set(ctx context.Context, level string, node *models.Node) {
	data, err := json.Marshal(node)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, c.key(level, node.ID), data, c.ttl).Err(); err != nil {
		c.logger.Debug("node cache write failed",
			zap.String("level", level),
			zap.String("node_id", node.ID),
			zap.Error(err),
		)
	}
}
