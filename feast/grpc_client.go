package feast

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
)

// GrpcClient 是基于官方 Feast Go SDK 的 gRPC 客户端实现。
// SDK 的值类型是 protobuf oneof，这里统一归一化为 Go 原生类型，
// 上层不感知 protobuf。
type GrpcClient struct {
	client *feastsdk.GrpcClient

	// Project 项目名称
	Project string

	// Endpoint 服务端点（日志/监控展示用）
	Endpoint string
}

// NewGrpcClient 连接 Feast Feature Server。
// token 非空时使用静态 Token 认证，否则走 insecure 连接。
func NewGrpcClient(host string, port int, project, token string) (*GrpcClient, error) {
	if port == 0 {
		port = 6565 // Feast 默认 gRPC 端口
	}

	var client *feastsdk.GrpcClient
	var err error
	if token != "" {
		security := feastsdk.SecurityConfig{
			EnableTLS:  false,
			Credential: feastsdk.NewStaticCredential(token),
		}
		client, err = feastsdk.NewSecureGrpcClient(host, port, security)
	} else {
		client, err = feastsdk.NewGrpcClient(host, port)
	}
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}

	return &GrpcClient{
		client:   client,
		Project:  project,
		Endpoint: fmt.Sprintf("%s:%d", host, port),
	}, nil
}

func (c *GrpcClient) GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error) {
	if len(req.Features) == 0 {
		return nil, fmt.Errorf("features are required")
	}
	if len(req.EntityRows) == 0 {
		return nil, fmt.Errorf("entity rows are required")
	}

	project := req.Project
	if project == "" {
		project = c.Project
	}
	if project == "" {
		return nil, fmt.Errorf("project is required")
	}

	entityRows := make([]feastsdk.Row, len(req.EntityRows))
	for i, row := range req.EntityRows {
		entityRow := make(feastsdk.Row, len(row))
		for k, v := range row {
			// SDK 辅助函数构造 protobuf 值，避免直接依赖 protos 包
			switch val := v.(type) {
			case string:
				entityRow[k] = feastsdk.StrVal(val)
			case int:
				entityRow[k] = feastsdk.Int64Val(int64(val))
			case int32:
				entityRow[k] = feastsdk.Int64Val(int64(val))
			case int64:
				entityRow[k] = feastsdk.Int64Val(val)
			case float32:
				entityRow[k] = feastsdk.FloatVal(val)
			case float64:
				entityRow[k] = feastsdk.DoubleVal(val)
			case bool:
				entityRow[k] = feastsdk.BoolVal(val)
			case []byte:
				entityRow[k] = feastsdk.BytesVal(val)
			default:
				entityRow[k] = feastsdk.StrVal(fmt.Sprintf("%v", val))
			}
		}
		entityRows[i] = entityRow
	}

	sdkResp, err := c.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: req.Features,
		Entities: entityRows,
		Project:  project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := sdkResp.Rows()
	if len(rows) != len(req.EntityRows) {
		return nil, fmt.Errorf("feast response row count mismatch: expected %d, got %d", len(req.EntityRows), len(rows))
	}

	vectors := make([]FeatureVector, len(rows))
	for i, row := range rows {
		values := make(map[string]interface{}, len(req.Features))
		for _, ref := range req.Features {
			if val, ok := row[ref]; ok {
				if converted := fromSDKValue(val); converted != nil {
					values[ref] = converted
				}
			}
		}
		vectors[i] = FeatureVector{Values: values, EntityRow: req.EntityRows[i]}
	}

	return &GetOnlineFeaturesResponse{FeatureVectors: vectors}, nil
}

func (c *GrpcClient) Close() error {
	// SDK 的连接由 gRPC 库自行管理，没有显式的 Close
	c.client = nil
	return nil
}

var _ Client = (*GrpcClient)(nil)
