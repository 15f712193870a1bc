// Package builders 注册内置 Node 的配置构建器。
// 入口处空白导入本包即可启用配置驱动：
//
//	import _ "github.com/outfitkit/outfitkit/config/builders"
//
// 依赖服务实例（向量存储、特征服务）的 Node 需要先通过
// UseVectorService / UseFeatureService 注入，再从配置构建。
package builders

import (
	"fmt"
	"sync"
	"time"

	"github.com/outfitkit/outfitkit/config"
	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/feast"
	"github.com/outfitkit/outfitkit/feature"
	"github.com/outfitkit/outfitkit/filter"
	"github.com/outfitkit/outfitkit/pipeline"
	"github.com/outfitkit/outfitkit/pkg/conv"
	"github.com/outfitkit/outfitkit/recall"
	"github.com/outfitkit/outfitkit/rerank"
)

func init() {
	config.Register("recall.wardrobe", BuildWardrobeNode)
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.mmr", BuildMMRNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("feature.enrich", BuildFeatureEnrichNode)
}

var (
	servicesMu sync.RWMutex
	vectors    core.VectorService
	features   core.FeatureService
)

// UseVectorService 注入向量检索服务，供 recall.wardrobe 构建器使用。
func UseVectorService(vs core.VectorService) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	vectors = vs
}

// UseFeatureService 注入特征服务，供 feature.enrich 构建器使用。
func UseFeatureService(fs core.FeatureService) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	features = fs
}

func vectorService() core.VectorService {
	servicesMu.RLock()
	defer servicesMu.RUnlock()
	return vectors
}

func featureService() core.FeatureService {
	servicesMu.RLock()
	defer servicesMu.RUnlock()
	return features
}

func buildWardrobe(cfg map[string]interface{}) (*recall.WardrobeRecall, error) {
	vs := vectorService()
	if vs == nil {
		return nil, fmt.Errorf("recall.wardrobe requires a vector service (call builders.UseVectorService)")
	}
	node := &recall.WardrobeRecall{
		Vectors:       vs,
		Class:         core.ItemClass(conv.ConfigGet(cfg, "class", "")),
		Limit:         int(conv.ConfigGetInt64(cfg, "limit", 0)),
		MinSimilarity: conv.ConfigGetFloat64(cfg, "min_similarity", 0),
		ExcludeIDs:    conv.SliceAnyToString(cfg["exclude_ids"]),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		node.Timeout = time.Duration(sec) * time.Second
	}
	return node, nil
}

func BuildWardrobeNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return buildWardrobe(cfg)
}

func BuildFanoutNode(cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
		case "wardrobe":
			src, err := buildWardrobe(sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}
	fanout := &recall.Fanout{
		Sources: sources,
		Dedup:   conv.ConfigGet(cfg, "dedup", true),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	return fanout, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	var filters []filter.Filter

	if conv.ConfigGet(cfg, "cooldown", true) {
		filters = append(filters, &filter.CooldownFilter{
			IDs: conv.SliceAnyToString(cfg["cooldown_ids"]),
		})
	}
	if ids := conv.SliceAnyToString(cfg["blacklist"]); len(ids) > 0 {
		filters = append(filters, &filter.BlacklistFilter{ItemIDs: ids})
	}
	if expr := conv.ConfigGet(cfg, "rule", ""); expr != "" {
		rule, err := filter.NewRuleFilter(expr)
		if err != nil {
			return nil, fmt.Errorf("rule filter: %w", err)
		}
		filters = append(filters, rule)
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func BuildMMRNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.MMRNode{
		K:      int(conv.ConfigGetInt64(cfg, "k", 0)),
		Lambda: conv.ConfigGetFloat64(cfg, "lambda", 0),
	}, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{
		N: int(conv.ConfigGetInt64(cfg, "n", 0)),
	}, nil
}

func BuildFeatureEnrichNode(cfg map[string]interface{}) (pipeline.Node, error) {
	fs := featureService()

	// 配置里带 feast 段时直接从配置建连，优先于注入的服务。
	if fc, ok := cfg["feast"].(map[string]interface{}); ok {
		store, err := feast.NewFeatureStore(feast.StoreConfig{
			Endpoint:      conv.ConfigGet(fc, "endpoint", ""),
			Project:       conv.ConfigGet(fc, "project", ""),
			Token:         conv.ConfigGet(fc, "token", ""),
			ItemFeatures:  conv.SliceAnyToString(fc["item_features"]),
			UserFeatures:  conv.SliceAnyToString(fc["user_features"]),
			ItemEntityKey: conv.ConfigGet(fc, "item_entity_key", ""),
			UserEntityKey: conv.ConfigGet(fc, "user_entity_key", ""),
		})
		if err != nil {
			return nil, fmt.Errorf("feast feature store: %w", err)
		}
		fs = store
	}

	return &feature.EnrichNode{
		Features:         fs,
		WithUserFeatures: conv.ConfigGet(cfg, "with_user_features", false),
	}, nil
}
