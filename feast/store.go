package feast

import (
	"context"
	"strings"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pkg/conv"
)

// FeatureStore 把 Feast 在线特征服务适配为领域特征服务。
// 特征引用格式为 "feature_view:feature_name"，写回候选时只保留
// feature_name 部分作为 key。
type FeatureStore struct {
	Client Client

	// Project 项目名称（可选）
	Project string

	// ItemFeatures 单品特征引用，例如 ["wardrobe_item_stats:versatility"]
	ItemFeatures []string

	// UserFeatures 租户特征引用
	UserFeatures []string

	// ItemEntityKey / UserEntityKey 实体键名，默认 item_id / user_id
	ItemEntityKey string
	UserEntityKey string
}

func (s *FeatureStore) Name() string { return "feast" }

func (s *FeatureStore) itemKey() string {
	if s.ItemEntityKey != "" {
		return s.ItemEntityKey
	}
	return "item_id"
}

func (s *FeatureStore) userKey() string {
	if s.UserEntityKey != "" {
		return s.UserEntityKey
	}
	return "user_id"
}

func (s *FeatureStore) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.fetch(ctx, s.UserFeatures, s.userKey(), []string{userID})
	if err != nil {
		return nil, err
	}
	return rows[userID], nil
}

func (s *FeatureStore) GetItemFeatures(ctx context.Context, itemID string) (map[string]float64, error) {
	rows, err := s.fetch(ctx, s.ItemFeatures, s.itemKey(), []string{itemID})
	if err != nil {
		return nil, err
	}
	return rows[itemID], nil
}

func (s *FeatureStore) BatchGetItemFeatures(ctx context.Context, itemIDs []string) (map[string]map[string]float64, error) {
	return s.fetch(ctx, s.ItemFeatures, s.itemKey(), itemIDs)
}

func (s *FeatureStore) Close(_ context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

// fetch 以单次请求拉取一批实体的特征，结果按实体 ID 索引。
// 非数值特征丢弃：领域特征服务只承载浮点特征。
func (s *FeatureStore) fetch(ctx context.Context, refs []string, entityKey string, ids []string) (map[string]map[string]float64, error) {
	if s.Client == nil || len(refs) == 0 || len(ids) == 0 {
		return map[string]map[string]float64{}, nil
	}

	entityRows := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		entityRows[i] = map[string]interface{}{entityKey: id}
	}

	resp, err := s.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   refs,
		EntityRows: entityRows,
		Project:    s.Project,
	})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnavailable, "feast: "+err.Error())
	}

	out := make(map[string]map[string]float64, len(ids))
	for i, vec := range resp.FeatureVectors {
		if i >= len(ids) {
			break
		}
		features := make(map[string]float64, len(vec.Values))
		for ref, raw := range vec.Values {
			if f, ok := conv.ToFloat64(raw); ok {
				features[shortName(ref)] = f
			}
		}
		out[ids[i]] = features
	}
	return out, nil
}

// shortName 取特征引用中 feature_view 之后的部分。
func shortName(ref string) string {
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

var _ core.FeatureService = (*FeatureStore)(nil)
