package filter

import (
	"context"
	"sync"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的规则过滤器。表达式对每个物品求值，
// 结果为 true 时过滤该物品。
//
// 可用变量见 pkg/dsl：item、meta、label、rctx。
// 示例：
//
//	meta["season"] == "winter"          // 过滤冬装
//	item.score < 0.35                   // 过滤低相关度候选
//	rctx.scene == "work" && meta["formality"] == "casual"
type RuleFilter struct {
	// Expr 是 CEL 表达式，返回 bool
	Expr string

	once       sync.Once
	program    *dsl.Program
	compileErr error
}

// NewRuleFilter 创建规则过滤器并立即编译表达式。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	f := &RuleFilter{Expr: expr}
	if err := f.compile(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RuleFilter) compile() error {
	f.once.Do(func() {
		f.program, f.compileErr = dsl.Compile(f.Expr)
	})
	return f.compileErr
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if err := f.compile(); err != nil {
		return false, err
	}
	return f.program.Match(item, rctx)
}
