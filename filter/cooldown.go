package filter

import (
	"context"

	"github.com/outfitkit/outfitkit/core"
)

// CooldownFilter 过滤冷却期内的单品：近几次已经推荐过的单品在
// 新一次推荐中不再出现。冷却集合通常由引擎在召回前统一计算并写入
// 请求上下文（同时作为检索的 ExcludeIDs），本过滤器作为召回后的兜底，
// 覆盖多路召回中绕过排除参数的来源。
type CooldownFilter struct {
	// IDs 是静态冷却列表（可选），与上下文中的冷却集合取并集
	IDs []string
}

func (f *CooldownFilter) Name() string {
	return "filter.cooldown"
}

func (f *CooldownFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, id := range f.IDs {
		if item.ID == id {
			return true, nil
		}
	}

	if rctx != nil {
		for _, id := range rctx.CooldownIDs() {
			if item.ID == id {
				return true, nil
			}
		}
	}

	return false, nil
}
