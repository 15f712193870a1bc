// Package outfitkit 是一个衣橱检索与搭配推荐工具包。
//
// 设计要点：
// - Pipeline-first: 检索逻辑通过 Node 串联（Recall → Filter → ReRank → PostProcess）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 降级追踪
// - 租户隔离: 所有向量分区与历史记录以 (tenant, class) 为作用域
// - 降级优先: 后端不可用时返回空候选并打标签，而不是让请求失败
package outfitkit

import "github.com/outfitkit/outfitkit/pipeline"

// 轻量 facade：便于用户直接 import "outfitkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
