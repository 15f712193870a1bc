package filter

import (
	"context"
	"encoding/json"

	"github.com/outfitkit/outfitkit/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的物品。
// 典型用途：租户显式隐藏的衣橱单品、运营下架的条目。
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单物品 ID 列表
	ItemIDs []string

	// Store 用于从存储中读取黑名单（可选）
	Store BlacklistStore

	// KeyPrefix 是 Store 中的黑名单 key 前缀，实际 key 为 {KeyPrefix}:{TenantID}
	KeyPrefix string
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	// GetBlacklist 获取黑名单物品 ID 列表
	GetBlacklist(ctx context.Context, key string) ([]string, error)
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, id := range f.ItemIDs {
		if item.ID == id {
			return true, nil
		}
	}

	if f.Store != nil && f.KeyPrefix != "" && rctx != nil && rctx.TenantID != "" {
		blacklist, err := f.Store.GetBlacklist(ctx, f.KeyPrefix+":"+rctx.TenantID)
		if err == nil {
			for _, id := range blacklist {
				if item.ID == id {
					return true, nil
				}
			}
		}
	}

	return false, nil
}

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口，
// 黑名单以 JSON 字符串数组存储。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetBlacklist 从 Store 读取黑名单。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

var _ BlacklistStore = (*StoreAdapter)(nil)
