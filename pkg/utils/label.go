package utils

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// 本核心用它记录召回来源、过滤原因与降级事件（例如向量后端不可用时的
// degraded 标签），让"空候选"与"后端故障"在观测上可区分。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / rank / engine ...
}

// MergeLabel 用于合并同名 Label，遵循"保留历史、可追踪"的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
