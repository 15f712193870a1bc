package core

import "time"

// RetrievalConfig 是检索与融合相关的配置接口，用于提供默认值。
// 各默认值与参考部署保持一致；实现方可按场景覆盖。
type RetrievalConfig interface {
	// DefaultSearchLimit 返回向量检索的默认候选数上限
	DefaultSearchLimit() int

	// DefaultTopK 返回 MMR 多样化后的默认保留数
	DefaultTopK() int

	// DefaultMMRLambda 返回 MMR 相关度/多样性权衡系数（1.0 全相关度，0.0 全多样性）
	DefaultMMRLambda() float64

	// DefaultMinSimilarity 返回候选的最低相似度门槛（由调用方应用，不硬编码在存储里）
	DefaultMinSimilarity() float64

	// DefaultCooldownLookback 返回冷却期回看的历史推荐条数
	DefaultCooldownLookback() int

	// DefaultCooldownMaxIDs 返回冷却排除集的最大容量
	DefaultCooldownMaxIDs() int

	// DefaultRecentEmbeddings 返回供 MMR 使用的历史推荐向量条数
	DefaultRecentEmbeddings() int

	// DefaultRelevanceWeight 返回融合打分中检索相关度的权重
	DefaultRelevanceWeight() float64

	// DefaultConfidenceWeight 返回融合打分中外部置信度的权重
	DefaultConfidenceWeight() float64

	// DefaultSearchTimeout 返回向量检索的默认超时时间（超时降级为空候选）
	DefaultSearchTimeout() time.Duration
}

// DefaultRetrievalConfig 是默认的检索配置实现。
type DefaultRetrievalConfig struct{}

func (c *DefaultRetrievalConfig) DefaultSearchLimit() int { return 40 }

func (c *DefaultRetrievalConfig) DefaultTopK() int { return 20 }

func (c *DefaultRetrievalConfig) DefaultMMRLambda() float64 { return 0.7 }

func (c *DefaultRetrievalConfig) DefaultMinSimilarity() float64 { return 0.3 }

func (c *DefaultRetrievalConfig) DefaultCooldownLookback() int { return 3 }

func (c *DefaultRetrievalConfig) DefaultCooldownMaxIDs() int { return 15 }

func (c *DefaultRetrievalConfig) DefaultRecentEmbeddings() int { return 5 }

func (c *DefaultRetrievalConfig) DefaultRelevanceWeight() float64 { return 0.6 }

func (c *DefaultRetrievalConfig) DefaultConfidenceWeight() float64 { return 0.4 }

func (c *DefaultRetrievalConfig) DefaultSearchTimeout() time.Duration { return 2 * time.Second }
