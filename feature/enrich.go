package feature

import (
	"context"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pipeline"
	"github.com/outfitkit/outfitkit/pkg/utils"
)

// EnrichNode 是特征注入节点：在候选交给外部搭配生成方之前，
// 批量拉取单品特征（versatility、formality 等）写回 item.Features，
// 并把租户特征以 user_ 前缀合入每个候选。
//
// 特征服务失败不中断流程：搭配合成在没有质量特征时依然可用，
// 只是少一路辅助信号。
type EnrichNode struct {
	// Features 特征服务；为 nil 时本节点是透传
	Features core.FeatureService

	// WithUserFeatures 为 true 时同时拉取租户特征
	WithUserFeatures bool
}

func (n *EnrichNode) Name() string {
	return "feature.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *EnrichNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Features == nil || len(items) == 0 {
		return items, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil {
			ids = append(ids, it.ID)
		}
	}

	itemFeatures, err := n.Features.BatchGetItemFeatures(ctx, ids)
	if err != nil {
		if rctx != nil {
			rctx.PutLabel("degraded", utils.Label{Value: "item_features_unavailable", Source: n.Name()})
		}
		itemFeatures = nil
	}

	var userFeatures map[string]float64
	if n.WithUserFeatures && rctx != nil && rctx.TenantID != "" {
		userFeatures, err = n.Features.GetUserFeatures(ctx, rctx.TenantID)
		if err != nil {
			rctx.PutLabel("degraded", utils.Label{Value: "user_features_unavailable", Source: n.Name()})
			userFeatures = nil
		}
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Features == nil {
			it.Features = make(map[string]float64)
		}
		if fs, ok := itemFeatures[it.ID]; ok {
			for k, v := range fs {
				it.Features[k] = v
			}
		}
		for k, v := range userFeatures {
			it.Features["user_"+k] = v
		}
	}
	return items, nil
}

var _ pipeline.Node = (*EnrichNode)(nil)
