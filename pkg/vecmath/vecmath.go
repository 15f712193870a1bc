// Package vecmath 提供 Embedding 向量的基础数学原语：相似度计算、安全的序列化/反序列化、
// 以及不同向量后端的距离到相似度转换。各召回/重排模块共用，避免重复实现。
package vecmath

import (
	"encoding/json"
	"math"
)

// CosineSimilarity 计算两个向量的余弦相似度，取值范围 [-1, 1]。
// 任一向量为空、长度不一致或模长为 0 时返回 0（维度不匹配视为不相关，不报错）。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EuclideanDistance 计算两个向量的欧氏距离。
// 长度不一致时返回 math.MaxFloat64（视为无限远）。
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// InnerProduct 计算两个向量的内积。长度不一致或为空时返回 0。
func InnerProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// ParseEmbedding 从存储表示（JSON 数组）反序列化向量。
// 输入为空或格式非法时返回 (nil, false)，调用方应跳过该条记录而不是中断整批操作。
func ParseEmbedding(raw []byte) ([]float64, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	if len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// MarshalEmbedding 将向量序列化为存储表示（JSON 数组）。
// 与 ParseEmbedding 互为逆操作。
func MarshalEmbedding(vec []float64) []byte {
	if len(vec) == 0 {
		return nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil
	}
	return data
}

// SimilarityFromL2 将归一化向量上的 L2 距离转换为 [0, 1] 相似度。
// 归一化向量满足 distance² = 2 - 2·cos，故 similarity = 1 - distance²/4，负值截断为 0。
// 适用于暴露平方欧氏距离的向量后端（如 Chroma 风格的存储）。
func SimilarityFromL2(distance float64) float64 {
	return math.Max(0, 1-distance*distance/4)
}

// SimilarityFromCosineDistance 将余弦距离转换为相似度：similarity = 1 - distance。
// 适用于原生暴露余弦距离的向量后端。
func SimilarityFromCosineDistance(distance float64) float64 {
	return 1 - distance
}
