package rerank

import (
	"context"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在重排后截取前 N 个物品。
// 通常跟在 MMRNode 之后，限制交给下游合成的候选数量。
type TopNNode struct {
	// N 要保留的物品数量（Top N）
	// 如果 N <= 0，则返回所有物品（不截断）
	// 如果 N > len(items)，则返回所有物品
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 {
		return items, nil
	}
	if len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
