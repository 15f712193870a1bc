package rank

import (
	"context"
	"math"
	"sort"

	"github.com/outfitkit/outfitkit/core"
)

// NeutralRelevance 是搭配中没有任何单品命中检索候选时使用的中性相关度。
const NeutralRelevance = 0.5

// HybridRanker 对外部合成器产出的搭配做混合打分：
//
//	fused = wRel*avgRelevance + wConf*confidence
//
// avgRelevance 是搭配内各单品检索相关度的算术平均；合成器可能引用
// 候选集之外的单品，这些单品按 0 相关度计入平均，整套都未命中时取中性值。
// 打分保留三位小数，稳定降序排序后重写 Rank 与 OutfitID 为名次。
type HybridRanker struct {
	// RelevanceWeight / ConfidenceWeight 权重和不要求为 1；
	// 两者都为 0 时使用默认配置
	RelevanceWeight  float64
	ConfidenceWeight float64

	Config core.RetrievalConfig
}

func (r *HybridRanker) weights() (float64, float64) {
	if r.RelevanceWeight != 0 || r.ConfidenceWeight != 0 {
		return r.RelevanceWeight, r.ConfidenceWeight
	}
	cfg := r.Config
	if cfg == nil {
		cfg = &core.DefaultRetrievalConfig{}
	}
	return cfg.DefaultRelevanceWeight(), cfg.DefaultConfidenceWeight()
}

// Rank 按混合分数重排搭配。candidates 提供单品 ID 到检索相关度的映射，
// 通常由召回阶段的 Item 集合构建（见 RelevanceIndex）。
// 输入切片不被修改，返回新切片。
func (r *HybridRanker) Rank(
	_ context.Context,
	outfits []core.ScoredOutfit,
	candidates map[string]float64,
) []core.ScoredOutfit {
	if len(outfits) == 0 {
		return nil
	}
	wRel, wConf := r.weights()

	out := make([]core.ScoredOutfit, len(outfits))
	copy(out, outfits)

	for i := range out {
		rel := avgRelevance(out[i].ItemIDs, candidates)
		out[i].Relevance = round3(rel)
		out[i].Fused = round3(wRel*rel + wConf*out[i].Confidence)
	}

	// 稳定排序：同分保持合成器给出的先后
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Fused > out[j].Fused
	})

	for i := range out {
		out[i].Rank = i + 1
		// 对外 ID 即名次，屏蔽合成器内部编号
		out[i].OutfitID = i + 1
	}
	return out
}

// RelevanceIndex 把召回候选压成 id -> 相关度 的查找表，供 Rank 使用。
func RelevanceIndex(items []*core.Item) map[string]float64 {
	idx := make(map[string]float64, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		idx[it.ID] = it.Score
	}
	return idx
}

func avgRelevance(itemIDs []string, candidates map[string]float64) float64 {
	sum := 0.0
	known := 0
	for _, id := range itemIDs {
		if score, ok := candidates[id]; ok {
			sum += score
			known++
		}
	}
	if known == 0 {
		return NeutralRelevance
	}
	// 引用了候选集之外单品的搭配，未命中项按 0 计入平均，整体被拉低
	return sum / float64(len(itemIDs))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
