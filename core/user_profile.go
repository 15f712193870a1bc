package core

// StyleProfile 是强类型风格画像，概括一个租户的穿衣风格。
// SummaryText 由外部分析产出，拼入查询上下文后参与向量化；
// StyleTags 为风格偏好权重（如 "minimalist": 0.8），本核心不解释其语义。
type StyleProfile struct {
	TenantID    string
	SummaryText string
	StyleTags   map[string]float64
}

func NewStyleProfile(tenantID string) *StyleProfile {
	return &StyleProfile{
		TenantID:  tenantID,
		StyleTags: make(map[string]float64),
	}
}

// QueryContext 将查询与画像摘要拼为向量化输入。
// 摘要超长时按字符截断（不能切断多字节字符），避免外部 Embedder 的输入上限问题。
func (p *StyleProfile) QueryContext(query string) string {
	if p == nil || p.SummaryText == "" {
		return query + ". User style: General style"
	}
	summary := p.SummaryText
	if runes := []rune(summary); len(runes) > 500 {
		summary = string(runes[:500])
	}
	return query + ". User style: " + summary
}
