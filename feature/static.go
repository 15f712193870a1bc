// Package feature 提供特征服务的内存实现与特征注入节点。
// 生产环境接 Feast（见 feast 包），测试/开发用 StaticFeatureService。
package feature

import (
	"context"
	"sync"

	"github.com/outfitkit/outfitkit/core"
)

// StaticFeatureService 是内存特征服务，特征表在构造后可并发读写。
type StaticFeatureService struct {
	mu    sync.RWMutex
	users map[string]map[string]float64
	items map[string]map[string]float64
}

func NewStaticFeatureService() *StaticFeatureService {
	return &StaticFeatureService{
		users: make(map[string]map[string]float64),
		items: make(map[string]map[string]float64),
	}
}

func (s *StaticFeatureService) Name() string { return "static" }

// SetUserFeatures 写入（覆盖）一个用户的特征。
func (s *StaticFeatureService) SetUserFeatures(userID string, features map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = copyFeatures(features)
}

// SetItemFeatures 写入（覆盖）一个单品的特征。
func (s *StaticFeatureService) SetItemFeatures(itemID string, features map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemID] = copyFeatures(features)
}

func (s *StaticFeatureService) GetUserFeatures(_ context.Context, userID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFeatures(s.users[userID]), nil
}

func (s *StaticFeatureService) GetItemFeatures(_ context.Context, itemID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFeatures(s.items[itemID]), nil
}

func (s *StaticFeatureService) BatchGetItemFeatures(_ context.Context, itemIDs []string) (map[string]map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]float64, len(itemIDs))
	for _, id := range itemIDs {
		if features, ok := s.items[id]; ok {
			out[id] = copyFeatures(features)
		}
	}
	return out, nil
}

func (s *StaticFeatureService) Close(_ context.Context) error { return nil }

func copyFeatures(src map[string]float64) map[string]float64 {
	if src == nil {
		return map[string]float64{}
	}
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

var _ core.FeatureService = (*StaticFeatureService)(nil)
