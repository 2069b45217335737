package location

import (
	"context"
	"strings"

	"ohmguard-notify/internal/models"

	"go.uber.org/zap"
)

// NodeSource 层级节点来源（由 repository.SensorsRepository 实现）
type NodeSource interface {
	GetNode(ctx context.Context, level, nodeID string) (*models.Node, error)
}

// Resolver 位置解析器
// 按固定顺序遍历 组织 → 楼栋 → 楼层 → 房间，跳过传感器未引用的层级。
// 每级查询相互独立：中间节点缺失（例如房间还在、楼层已删）不会中断
// 后续层级的解析，因为每级都用传感器自己存的引用，而不是沿节点树上溯。
// 解析是纯读、尽力而为的装饰：任何失败只降级为缺少对应片段，从不报错。
type Resolver struct {
	source NodeSource
	cache  *NodeCache // 可选，nil 表示不启用缓存
	logger *zap.Logger
}

// NewResolver 创建位置解析器
func NewResolver(source NodeSource, cache *NodeCache, logger *zap.Logger) *Resolver {
	return &Resolver{
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// Resolve 解析传感器位置
// 返回 (渲染路径, 结构化位置)：没有任何层级可解析时两者都为 nil。
// 路径片段用 " > " 连接；房间渲染为 "Room <room_number 或 name>"。
func (r *Resolver) Resolve(ctx context.Context, sensor *models.Sensor) (*string, *models.Location) {
	if sensor == nil {
		return nil, nil
	}

	parts := []string{}
	loc := &models.Location{}

	if node := r.lookup(ctx, models.NodeOrganization, sensor.OrganizationID); node != nil {
		parts = append(parts, node.Name)
		loc.OrganizationName = node.Name
	}
	if node := r.lookup(ctx, models.NodeBuilding, sensor.BuildingID); node != nil {
		parts = append(parts, node.Name)
		loc.BuildingName = node.Name
	}
	if node := r.lookup(ctx, models.NodeFloor, sensor.FloorID); node != nil {
		parts = append(parts, node.Name)
		loc.FloorName = node.Name
	}
	if node := r.lookup(ctx, models.NodeRoom, sensor.RoomID); node != nil {
		// 房间优先显示房号
		roomNumber := node.Name
		if node.RoomNumber != nil && *node.RoomNumber != "" {
			roomNumber = *node.RoomNumber
		}
		parts = append(parts, "Room "+roomNumber)
		loc.RoomNumber = roomNumber
	}

	if len(parts) == 0 {
		return nil, nil
	}

	path := strings.Join(parts, " > ")
	if loc.Empty() {
		return &path, nil
	}
	return &path, loc
}

// lookup 单级节点查询：未引用 / 缓存 miss 走 DB / 查不到都返回 nil
func (r *Resolver) lookup(ctx context.Context, level string, nodeID *string) *models.Node {
	if nodeID == nil || *nodeID == "" {
		return nil
	}

	if r.cache != nil {
		if node, ok := r.cache.Get(ctx, level, *nodeID); ok {
			return node
		}
	}

	node, err := r.source.GetNode(ctx, level, *nodeID)
	if err != nil {
		// 缺失节点不是错误，只是少一个路径片段
		r.logger.Debug("location node lookup failed",
			zap.String("level", level),
			zap.String("node_id", *nodeID),
			zap.Error(err),
		)
		return nil
	}

	if r.cache != nil {
		r.cache.Set(ctx, level, node)
	}

	return node
}
