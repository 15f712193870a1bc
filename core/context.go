package core

import (
	"sync"

	"github.com/outfitkit/outfitkit/pkg/utils"
)

// RecommendContext 承载租户/查询/实时信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// TenantID 是租户（用户）标识，所有存储与检索都按租户隔离。
	TenantID string
	Scene    string

	// Query 是本次推荐的自然语言查询（例如 "business casual for a summer wedding"）。
	Query string

	// QueryVector 是查询的 Embedding 向量，由外部 Embedder 生成。
	QueryVector []float64

	// Profile 是强类型风格画像；为空时走通用检索。
	Profile *StyleProfile

	// Labels 是请求级标签，可驱动整个 Pipeline 行为，并记录降级/过滤等观测信息。
	Labels map[string]utils.Label

	// Params 请求级上下文参数，包含：
	// - 请求参数：exclude_ids, limit, occasion 等
	// - 管线中间态：recent_embeddings（历史推荐向量，显式透传给 MMR，避免隐藏全局状态）
	Params map[string]any

	// labelMu 保护 Labels：并发召回（Fanout）下多个源可能同时打降级标签
	labelMu sync.Mutex
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	rctx.labelMu.Lock()
	defer rctx.labelMu.Unlock()
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	rctx.labelMu.Lock()
	defer rctx.labelMu.Unlock()
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// RecentEmbeddings 读取 Params 中透传的历史推荐向量（用于 MMR 冗余惩罚）。
// 未设置时返回 nil。
func (rctx *RecommendContext) RecentEmbeddings() [][]float64 {
	if rctx.Params == nil {
		return nil
	}
	if vecs, ok := rctx.Params["recent_embeddings"].([][]float64); ok {
		return vecs
	}
	return nil
}

// SetRecentEmbeddings 写入历史推荐向量，供下游 MMR 节点消费。
func (rctx *RecommendContext) SetRecentEmbeddings(vecs [][]float64) {
	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params["recent_embeddings"] = vecs
}

// CooldownIDs 读取 Params 中透传的冷却期单品 ID（近期已推荐，
// 检索时排除，过滤节点兜底）。未设置时返回 nil。
func (rctx *RecommendContext) CooldownIDs() []string {
	if rctx.Params == nil {
		return nil
	}
	if ids, ok := rctx.Params["cooldown_ids"].([]string); ok {
		return ids
	}
	return nil
}

// SetCooldownIDs 写入冷却期单品 ID。
func (rctx *RecommendContext) SetCooldownIDs(ids []string) {
	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params["cooldown_ids"] = ids
}
