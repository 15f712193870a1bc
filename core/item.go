package core

import "github.com/outfitkit/outfitkit/pkg/utils"

// Item 是推荐链路中的统一承载结构：衣橱单品的 ID、检索相关度、Embedding 向量、
// 元信息（类目/颜色/风格等，本核心不解释其语义）与标签。
// Score 为归一化后的检索相关度（相对当前查询），用于排序与融合决策；
// Labels 用于解释与观测。
type Item struct {
	ID        string
	Score     float64
	Embedding []float64
	Features  map[string]float64
	Meta      map[string]any
	Labels    map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
