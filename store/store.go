// Package store 提供领域接口的基础设施实现：内存/Redis 的 KV 存储与向量存储。
package store

import "github.com/outfitkit/outfitkit/core"

var (
	ErrNotFound     = core.ErrStoreNotFound
	ErrNotSupported = core.ErrStoreNotSupported
)
