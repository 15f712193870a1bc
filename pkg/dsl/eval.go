// Package dsl 提供基于 CEL (Common Expression Language) 的规则表达式求值，
// 用于元数据规则过滤（例如按场合/正式度筛选候选单品）。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/outfitkit/outfitkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("meta", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的规则表达式，可对多个 Item 重复求值。
//
// 表达式语法（CEL 标准语法）：
//   - 元数据：meta.formality >= 3.0 / meta.color == "black"
//   - 分数：item.score > 0.5
//   - 标签：label.recall_source == "wardrobe"
//   - 逻辑：meta.style == "casual" && item.score > 0.4
//
// 注意：CEL 访问不存在的 key 会报错，用 meta.key != null 检查存在性。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译规则表达式。编译一次即可在整个候选集上重复执行。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}

	return &Program{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式文本（用于日志/观测）。
func (p *Program) Expr() string { return p.expr }

// Match 对单个 Item 求值，返回布尔结果。
// 表达式运行时错误（例如访问不存在的 key）向上返回，由调用方决定保留或跳过。
func (p *Program) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{})
	if it != nil {
		for k, v := range it.Labels {
			// label.recall_source 直接取 value，source 走 item.labels
			labels[k] = v.Value
		}
	}

	item := map[string]interface{}{}
	meta := map[string]interface{}{}
	if it != nil {
		item = map[string]interface{}{
			"id":       it.ID,
			"score":    it.Score,
			"features": it.Features,
			"meta":     it.Meta,
		}
		if it.Meta != nil {
			meta = it.Meta
		}
	}

	rctxMap := map[string]interface{}{}
	if rctx != nil {
		rctxMap = map[string]interface{}{
			"tenant_id": rctx.TenantID,
			"scene":     rctx.Scene,
			"query":     rctx.Query,
			"params":    rctx.Params,
		}
	}

	return map[string]interface{}{
		"item":  item,
		"meta":  meta,
		"label": labels,
		"rctx":  rctxMap,
	}
}
