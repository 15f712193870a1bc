package core

import "context"

// Embedder 是文本向量化服务的领域接口，由外部模型服务实现。
// 文本无法向量化时返回 (nil, nil)：缺失不是错误，调用方走降级路径。
type Embedder interface {
	// Embed 将文本转为 Embedding 向量
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Composer 是外部搭配生成服务（生成式模型）的领域接口。
// 输入为多样化后的候选单品，输出为若干套搭配（ScoredOutfit），
// 每套附带生成方自评的置信度。置信度来自非确定性的生成过程，
// 本核心只把它当作不透明浮点输入，不假设其校准性或单调性。
type Composer interface {
	// Compose 基于候选单品生成搭配分组；无结果时返回空切片而不是错误
	Compose(ctx context.Context, rctx *RecommendContext, items []*Item) ([]ScoredOutfit, error)
}

// ScoredOutfit 是搭配分组：一组单品 ID 加上生成方置信度，
// 经 Hybrid 排序后补充相关度、融合分与最终名次。
type ScoredOutfit struct {
	// OutfitID 分组标识；排序后被改写为名次，下游可将二者互换使用
	OutfitID int `json:"outfit_id"`

	// Name 搭配名称（由生成方给出）
	Name string `json:"outfit_name,omitempty"`

	// Description 搭配描述文本
	Description string `json:"items_description,omitempty"`

	// ItemIDs 成员单品 ID 列表
	ItemIDs []string `json:"wardrobe_item_ids"`

	// Confidence 生成方自评置信度，[0, 1]
	Confidence float64 `json:"confidence_score"`

	// Relevance 成员单品检索相关度均值（排序时计算，保留 3 位小数）
	Relevance float64 `json:"vector_relevance"`

	// Fused 融合分：RelevanceWeight·Relevance + ConfidenceWeight·Confidence
	Fused float64 `json:"combined_score"`

	// Rank 最终名次，1 为最优；同分保持输入相对顺序
	Rank int `json:"rank"`
}
