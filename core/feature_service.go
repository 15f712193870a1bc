package core

import "context"

// FeatureService 是特征服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（feast / feature）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 获取单品质量特征：versatility、formality 等，随候选一并交给外部生成方
//   - 获取用户特征：风格偏好权重
//
// 实现：
//   - feast.GrpcClient 实现此接口（Feast Feature Store）
//   - feature.StaticFeatureService 实现此接口（内存实现，测试/开发）
type FeatureService interface {
	// Name 返回特征服务名称（用于日志/监控）
	Name() string

	// GetUserFeatures 获取用户特征（单个用户）
	GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error)

	// GetItemFeatures 获取单品特征（单个单品）
	GetItemFeatures(ctx context.Context, itemID string) (map[string]float64, error)

	// BatchGetItemFeatures 批量获取单品特征（推荐使用，减少网络往返）
	BatchGetItemFeatures(ctx context.Context, itemIDs []string) (map[string]map[string]float64, error)

	// Close 关闭特征服务，释放资源
	Close(ctx context.Context) error
}
