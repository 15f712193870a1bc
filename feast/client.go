// Package feast 对接 Feast Feature Store，为单品与租户提供在线特征
// （versatility、formality 等质量分），随候选一并交给外部搭配生成方。
package feast

import "context"

// Client 是 Feast 在线特征服务的客户端接口。
// 领域层只依赖此接口，gRPC 实现见 GrpcClient。
type Client interface {
	// GetOnlineFeatures 获取在线特征
	//
	// 参数：
	//   - features: 特征引用列表，例如 ["wardrobe_item_stats:versatility"]
	//   - entityRows: 实体行，例如 [{"item_id": "itm_1"}]
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求
type GetOnlineFeaturesRequest struct {
	// Features 特征引用列表，格式为 "feature_view:feature_name"
	Features []string

	// EntityRows 实体行，每行对应一个实体
	EntityRows []map[string]interface{}

	// Project 项目名称（可选，默认取客户端配置）
	Project string
}

// GetOnlineFeaturesResponse 获取在线特征响应
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 特征向量列表，与请求的实体行一一对应
	FeatureVectors []FeatureVector
}

// FeatureVector 单个实体的特征值集合
type FeatureVector struct {
	// Values 特征值，key 为特征引用
	Values map[string]interface{}

	// EntityRow 对应的实体行
	EntityRow map[string]interface{}
}
