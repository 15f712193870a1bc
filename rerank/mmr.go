package rerank

import (
	"context"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pipeline"
	"github.com/outfitkit/outfitkit/pkg/utils"
	"github.com/outfitkit/outfitkit/pkg/vecmath"
)

// SelectMMR 使用最大边际相关（Maximal Marginal Relevance）贪心选择候选子集，
// 在相关性与多样性之间折中：
//
//	mmr = lambda*relevance - (1-lambda)*penalty
//
// 其中 penalty 取「与已选物品的最大相似度」和「与近期展示向量的最大相似度」
// 二者中的较大值，即对两类冗余都按更严格的一侧惩罚。
//
// 约定：
//   - candidates 按相关性降序传入；分数相同取先出现者（稳定）。
//   - 缺少向量的候选不参与选择。
//   - k <= 0 使用默认值；k >= 可选数量时仍按贪心顺序输出全部（非直接透传）。
//   - lambda 超出 [0,1] 时回退默认值。
func SelectMMR(
	candidates []*core.Item,
	recent [][]float64,
	k int,
	lambda float64,
) []*core.Item {
	defaults := &core.DefaultRetrievalConfig{}
	if k <= 0 {
		k = defaults.DefaultTopK()
	}
	if lambda < 0 || lambda > 1 {
		lambda = defaults.DefaultMMRLambda()
	}

	pool := make([]*core.Item, 0, len(candidates))
	for _, it := range candidates {
		if it == nil || len(it.Embedding) == 0 {
			continue
		}
		pool = append(pool, it)
	}
	if len(pool) == 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	selected := make([]*core.Item, 0, k)
	remaining := pool

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0

		for i, cand := range remaining {
			penalty := 0.0
			for _, sel := range selected {
				if sim := vecmath.CosineSimilarity(cand.Embedding, sel.Embedding); sim > penalty {
					penalty = sim
				}
			}
			for _, vec := range recent {
				if sim := vecmath.CosineSimilarity(cand.Embedding, vec); sim > penalty {
					penalty = sim
				}
			}

			score := lambda*cand.Score - (1-lambda)*penalty
			// 严格大于：同分保留先出现的候选
			if bestIdx < 0 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}

		picked := remaining[bestIdx]
		selected = append(selected, picked)
		remaining = append(remaining[:bestIdx:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// MMRNode 是基于 MMR 的多样性重排节点。近期展示向量从
// rctx 的 recent_embeddings 参数读取（由引擎预取后注入），
// 节点本身不访问存储。
type MMRNode struct {
	// K 选择数量，<= 0 使用默认值
	K int
	// Lambda 相关性权重，超出 [0,1] 使用默认值
	Lambda float64
	// Config 可选；提供时覆盖 K/Lambda 的默认来源
	Config core.RetrievalConfig
}

func (n *MMRNode) Name() string {
	return "rerank.mmr"
}

func (n *MMRNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *MMRNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	cfg := n.Config
	if cfg == nil {
		cfg = &core.DefaultRetrievalConfig{}
	}
	k := n.K
	if k <= 0 {
		k = cfg.DefaultTopK()
	}
	lambda := n.Lambda
	if lambda <= 0 || lambda > 1 {
		// 零值视为未设置；显式 lambda=0（纯多样性）通过自定义 Config 表达
		lambda = cfg.DefaultMMRLambda()
	}

	var recent [][]float64
	if rctx != nil {
		recent = rctx.RecentEmbeddings()
	}

	out := SelectMMR(items, recent, k, lambda)
	for _, it := range out {
		it.PutLabel("rerank", utils.Label{Value: "mmr", Source: n.Name()})
	}
	return out, nil
}
