package recall

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pipeline"
	"github.com/outfitkit/outfitkit/pkg/utils"
)

// Source 是召回源接口：Fanout 并发调度的最小单元。
type Source interface {
	Name() string
	Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 典型用法是对多个分区（例如按单品类目拆分的向量分区）同时检索。
// 支持超时、限流、按优先级去重合并。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		grouped = make([][]*core.Item, len(n.Sources))
		eg, _   = errgroup.WithContext(ctx)
	)

	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		idx, s := i, src

		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := s.Process(recallCtx, rctx, nil)
			if err != nil {
				// 单个召回源的错误不中断其他召回源
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测
			for _, it := range items {
				it.PutLabel("recall_source", utils.Label{Value: s.Name(), Source: "recall"})
				it.PutLabel("recall_priority", utils.Label{Value: strconv.Itoa(idx), Source: "recall"})
			}

			mu.Lock()
			grouped[idx] = items
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 按 Sources 声明顺序拼接，保证并发执行下的确定性输出
	all := make([]*core.Item, 0)
	for _, items := range grouped {
		all = append(all, items...)
	}

	if !n.Dedup {
		return all, nil
	}
	return mergeFirst(all), nil
}

// mergeFirst 按 ID 去重，保留第一个出现的（优先级按 Sources 顺序）。
func mergeFirst(all []*core.Item) []*core.Item {
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

var _ pipeline.Node = (*Fanout)(nil)
