package pipeline

import (
	"context"

	"github.com/outfitkit/outfitkit/core"
)

// Pipeline 是 OutfitKit 的核心抽象：把检索-过滤-多样化逻辑拆成可组合的 Node 链。
// 单次请求内各 Node 顺序执行（每步依赖上一步输出）；Pipeline 自身不持有全局锁，
// 并发请求之间互不阻塞。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
