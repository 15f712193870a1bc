// Package recall 提供召回 Node：从向量存储按查询向量检索候选单品。
package recall

import (
	"context"
	"time"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pipeline"
	"github.com/outfitkit/outfitkit/pkg/utils"
)

// WardrobeRecall 是基于向量相似度的衣橱召回源。
// 以查询向量在租户的单品分区内做相似度检索，排除冷却期/显式排除项，
// 并应用最低相似度门槛（门槛在调用侧应用，不写死在存储里）。
//
// 降级行为：向量后端不可用或超时时返回空候选并打 degraded 标签，
// 不中断整个推荐流程，空候选与后端故障在观测上可区分。
type WardrobeRecall struct {
	// Vectors 向量检索服务（可以是内存、Redis 等）
	Vectors core.VectorService

	// Class 目标分区类别，默认 ClassWardrobeItem
	Class core.ItemClass

	// Limit 召回上限，<=0 时取默认值 40
	Limit int

	// MinSimilarity 最低相似度门槛，0 时取默认值 0.3；传负数表示不设门槛。
	// 负相似度的候选始终视为不相关。
	MinSimilarity float64

	// ExcludeIDs 检索时排除的单品 ID；与请求上下文中的冷却集合取并集
	ExcludeIDs []string

	// Timeout 检索超时，超时降级为空候选；<=0 时取默认值
	Timeout time.Duration

	// Config 提供默认值；为 nil 时使用 DefaultRetrievalConfig
	Config core.RetrievalConfig
}

func (r *WardrobeRecall) Name() string        { return "recall.wardrobe" }
func (r *WardrobeRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *WardrobeRecall) config() core.RetrievalConfig {
	if r.Config != nil {
		return r.Config
	}
	return &core.DefaultRetrievalConfig{}
}

func (r *WardrobeRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if r.Vectors == nil || rctx == nil || rctx.TenantID == "" {
		return nil, nil
	}
	if len(rctx.QueryVector) == 0 {
		return nil, nil
	}

	cfg := r.config()

	class := r.Class
	if class == "" {
		class = core.ClassWardrobeItem
	}
	limit := r.Limit
	if limit <= 0 {
		limit = cfg.DefaultSearchLimit()
	}
	minSim := r.MinSimilarity
	if minSim == 0 {
		minSim = cfg.DefaultMinSimilarity()
	}
	if minSim < 0 {
		minSim = 0 // 显式传负数表示不设门槛
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = cfg.DefaultSearchTimeout()
	}

	exclude := r.ExcludeIDs
	if cooldown := rctx.CooldownIDs(); len(cooldown) > 0 {
		exclude = append(append([]string{}, exclude...), cooldown...)
	}

	searchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := r.Vectors.Search(searchCtx, &core.VectorSearchRequest{
		Partition:  core.Partition{Tenant: rctx.TenantID, Class: class},
		Vector:     rctx.QueryVector,
		Limit:      limit,
		ExcludeIDs: exclude,
	})
	if err != nil {
		// 不可用/超时降级为空候选；打标签让空候选与后端故障可区分
		rctx.PutLabel("degraded", utils.Label{Value: "vector_search:" + err.Error(), Source: "recall"})
		return nil, nil
	}

	out := make([]*core.Item, 0, len(result.Items))
	for _, hit := range result.Items {
		if hit.Similarity < minSim {
			continue // 门槛以下的候选直接丢弃（结果已降序，后续全部更低）
		}
		it := core.NewItem(hit.ID)
		it.Score = hit.Similarity
		it.Embedding = hit.Embedding
		if hit.Metadata != nil {
			it.Meta = hit.Metadata
		}
		it.PutLabel("recall_source", utils.Label{Value: "wardrobe", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

var _ pipeline.Node = (*WardrobeRecall)(nil)
