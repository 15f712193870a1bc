package feast

import (
	"strconv"
	"strings"
)

// NewClient 统一的客户端创建函数，从端点地址创建 gRPC 客户端。
//
// 参数：
//   - endpoint: 服务端点，如 "localhost:6565" 或 "grpc://localhost:6565"
//   - project: 项目名称
//   - token: 静态认证 Token，留空则走 insecure 连接
func NewClient(endpoint, project, token string) (Client, error) {
	host, port := parseEndpoint(endpoint)
	return NewGrpcClient(host, port, project, token)
}

// StoreConfig 特征存储的连接与特征引用配置。
type StoreConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Project  string `yaml:"project" json:"project"`
	Token    string `yaml:"token" json:"token"`

	// ItemFeatures / UserFeatures 特征引用，格式 "feature_view:feature_name"
	ItemFeatures []string `yaml:"item_features" json:"item_features"`
	UserFeatures []string `yaml:"user_features" json:"user_features"`

	// ItemEntityKey / UserEntityKey 实体键名，默认 item_id / user_id
	ItemEntityKey string `yaml:"item_entity_key" json:"item_entity_key"`
	UserEntityKey string `yaml:"user_entity_key" json:"user_entity_key"`
}

// NewFeatureStore 从配置创建 Feast 特征存储。
func NewFeatureStore(cfg StoreConfig) (*FeatureStore, error) {
	client, err := NewClient(cfg.Endpoint, cfg.Project, cfg.Token)
	if err != nil {
		return nil, err
	}
	return &FeatureStore{
		Client:        client,
		Project:       cfg.Project,
		ItemFeatures:  cfg.ItemFeatures,
		UserFeatures:  cfg.UserFeatures,
		ItemEntityKey: cfg.ItemEntityKey,
		UserEntityKey: cfg.UserEntityKey,
	}, nil
}

// parseEndpoint 解析端点地址，返回 host 和 port。
func parseEndpoint(endpoint string) (string, int) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")

	parts := strings.Split(endpoint, ":")
	if len(parts) == 2 {
		port, err := strconv.Atoi(parts[1])
		if err == nil {
			return parts[0], port
		}
	}

	return endpoint, 0
}
