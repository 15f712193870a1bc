// Package engine 编排完整的推荐流程：查询向量化、冷却期与历史向量预取、
// 向量召回、过滤、MMR 多样化、外部搭配合成、混合排序与历史提交。
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/filter"
	"github.com/outfitkit/outfitkit/history"
	"github.com/outfitkit/outfitkit/pipeline"
	"github.com/outfitkit/outfitkit/pkg/utils"
	"github.com/outfitkit/outfitkit/rank"
	"github.com/outfitkit/outfitkit/recall"
	"github.com/outfitkit/outfitkit/rerank"
)

// MinComposeItems 是触发搭配合成所需的最少候选数：
// 少于两件单品拼不出有意义的搭配。
const MinComposeItems = 2

// Request 是一次推荐请求。
type Request struct {
	TenantID string
	Query    string

	// Profile 可选；提供时画像摘要拼入向量化输入
	Profile *core.StyleProfile

	// ExcludeIDs 显式排除的单品（与冷却集合取并集）
	ExcludeIDs []string

	// Limit 最终返回的搭配数上限，<=0 不截断
	Limit int
}

// Response 是一次推荐的最终产出。
type Response struct {
	Outfits []core.ScoredOutfit

	// RecordID 本次推荐落库后的历史记录 ID；降级路径下为空
	RecordID string

	// Labels 请求级观测标签（降级原因、过滤统计等）
	Labels map[string]utils.Label
}

// Engine 把各组件装配成完整的推荐服务。
//
// 并发模型：单次请求内冷却集合与历史向量并发预取（二者互不依赖），
// 其余阶段顺序执行；Engine 自身无共享可变状态，并发请求互不阻塞。
// 提交语义：历史记录只在产出最终排序结果后追加，
// 中途取消或失败的请求不留任何历史痕迹。
type Engine struct {
	Vectors  core.VectorService
	History  *history.Service
	Embedder core.Embedder
	Composer core.Composer

	// Features 可选；提供时在合成前为候选附加单品特征
	Features core.FeatureService

	// Filters 可选的额外过滤器（黑名单、规则等），冷却过滤始终启用
	Filters []filter.Filter

	// Config 为 nil 时使用默认配置
	Config core.RetrievalConfig
}

func (e *Engine) config() core.RetrievalConfig {
	if e.Config != nil {
		return e.Config
	}
	return &core.DefaultRetrievalConfig{}
}

// Recommend 执行一次完整推荐。
//
// 降级路径（均不返回错误，通过 Labels 可观测）：
//   - 查询无法向量化：返回空结果
//   - 向量后端不可用：空候选，返回空结果
//
// 返回错误的情况：输入无效、衣橱可用单品不足两件
// （core.ErrInsufficientItems）、ctx 取消、合成失败。
func (e *Engine) Recommend(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.TenantID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: tenant is required")
	}
	if req.Query == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: query is required")
	}
	if e.Embedder == nil || e.Composer == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: embedder and composer are required")
	}

	rctx := &core.RecommendContext{
		TenantID: req.TenantID,
		Query:    req.Query,
		Profile:  req.Profile,
	}
	cfg := e.config()

	// 1. 查询向量化（画像摘要拼入上下文）
	queryText := req.Profile.QueryContext(req.Query)
	vec, err := e.Embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "engine: embed query: "+err.Error())
	}
	if len(vec) == 0 {
		// 向量缺失不是错误：降级为空结果
		rctx.PutLabel("degraded", utils.Label{Value: "query_embedding_absent", Source: "engine"})
		return e.emptyResponse(rctx), nil
	}
	rctx.QueryVector = vec

	// 2. 冷却集合与历史向量并发预取。
	// 结果先收进局部变量，Wait 之后再写回 rctx，避免并发写同一个 map。
	if e.History != nil {
		var (
			cooldownIDs []string
			recentVecs  [][]float64
			cooldownErr error
			recentErr   error
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			cooldownIDs, cooldownErr = e.History.RecentlyUsedIDs(gctx, req.TenantID,
				cfg.DefaultCooldownLookback(), cfg.DefaultCooldownMaxIDs())
			return nil
		})
		g.Go(func() error {
			recentVecs, recentErr = e.History.RecentEmbeddings(gctx, req.TenantID, cfg.DefaultRecentEmbeddings())
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if cooldownErr != nil {
			// 历史读取失败时冷却集合为空：宁可重复推荐也不中断
			rctx.PutLabel("degraded", utils.Label{Value: "cooldown_unavailable", Source: "engine"})
		} else {
			rctx.SetCooldownIDs(cooldownIDs)
		}
		if recentErr != nil {
			rctx.PutLabel("degraded", utils.Label{Value: "recent_embeddings_unavailable", Source: "engine"})
		} else {
			rctx.SetRecentEmbeddings(recentVecs)
		}
	}

	// 3. 召回 → 过滤 → MMR 多样化
	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.WardrobeRecall{
				Vectors:    e.Vectors,
				ExcludeIDs: req.ExcludeIDs,
				Config:     cfg,
			},
			&filter.FilterNode{
				Filters: append([]filter.Filter{&filter.CooldownFilter{}}, e.Filters...),
			},
			&rerank.MMRNode{Config: cfg},
		},
	}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	if len(items) < MinComposeItems {
		// 后端故障导致的候选不足走降级；衣橱本身太小则如实报告
		if _, degraded := rctx.GetLabel("degraded"); degraded {
			return e.emptyResponse(rctx), nil
		}
		return nil, core.ErrInsufficientItems
	}

	// 4. 特征补充（可选）
	if e.Features != nil {
		e.enrich(ctx, items)
	}

	// 5. 外部搭配合成
	outfits, err := e.Composer.Compose(ctx, rctx, items)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleComposer, core.ErrorCodeUnavailable, "engine: compose: "+err.Error())
	}
	if len(outfits) == 0 {
		rctx.PutLabel("degraded", utils.Label{Value: "composer_empty", Source: "engine"})
		return e.emptyResponse(rctx), nil
	}

	// 6. 混合排序
	ranker := &rank.HybridRanker{Config: cfg}
	ranked := ranker.Rank(ctx, outfits, rank.RelevanceIndex(items))
	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
		for i := range ranked {
			ranked[i].Rank = i + 1
			ranked[i].OutfitID = i + 1
		}
	}

	// 7. 提交历史（唯一提交点，产出最终结果之后）。
	// 记录的多样性向量来自推荐内容本身（查询 + 搭配描述 + 单品 ID），
	// 不能存查询向量：否则重复查询时 MMR 会按相关度惩罚候选。
	recordID := ""
	if e.History != nil {
		groups := make([][]string, 0, len(ranked))
		descriptions := make([]string, 0, len(ranked))
		usedIDs := make([]string, 0, len(ranked)*2)
		seen := make(map[string]bool)
		for _, o := range ranked {
			groups = append(groups, o.ItemIDs)
			descriptions = append(descriptions, o.Name+": "+o.Description)
			for _, id := range o.ItemIDs {
				if !seen[id] {
					seen[id] = true
					usedIDs = append(usedIDs, id)
				}
			}
		}

		recVec, embedErr := e.Embedder.Embed(ctx, history.RecommendationText(req.Query, descriptions, usedIDs))
		if embedErr != nil || len(recVec) == 0 {
			// 向量缺失只影响后续多样性对比，记录本身照常落库
			recVec = nil
			rctx.PutLabel("degraded", utils.Label{Value: "recommendation_embedding_absent", Source: "engine"})
		}

		recordID, err = e.History.Append(ctx, req.TenantID, history.Record{
			Query:     req.Query,
			Groups:    groups,
			Embedding: recVec,
			CreatedAt: time.Now(),
		})
		if err != nil {
			// 结果已经产出，落库失败只影响后续冷却/多样性
			rctx.PutLabel("degraded", utils.Label{Value: "history_append_failed", Source: "engine"})
		}
	}

	return &Response{Outfits: ranked, RecordID: recordID, Labels: rctx.Labels}, nil
}

func (e *Engine) emptyResponse(rctx *core.RecommendContext) *Response {
	return &Response{Outfits: []core.ScoredOutfit{}, Labels: rctx.Labels}
}

// enrich 批量拉取单品特征并写回候选；特征服务失败不影响主流程。
func (e *Engine) enrich(ctx context.Context, items []*core.Item) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	features, err := e.Features.BatchGetItemFeatures(ctx, ids)
	if err != nil {
		return
	}
	for _, it := range items {
		if fs, ok := features[it.ID]; ok {
			for k, v := range fs {
				it.Features[k] = v
			}
		}
	}
}
