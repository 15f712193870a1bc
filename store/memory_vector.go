package store

import (
	"sort"
	"sync"

	"context"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pkg/vecmath"
)

// MemoryVectorStore 是内存实现的向量存储，用于测试/开发/原型。
// 平替 Redis 等生产后端，按 (租户, 类别) 分区存放向量并支持相似度检索。
//
// 特点：
//   - 纯内存实现，进程重启后数据丢失
//   - 精确余弦相似度，降序输出，相同分数按插入顺序先到先得（确定性）
//   - Recent 按插入序返回，Upsert 同一 ID 会刷新其"最近"位置
//   - 线程安全，分区间并发读写互不干扰
type MemoryVectorStore struct {
	mu         sync.RWMutex
	partitions map[string]*vectorPartition // Partition.Key() -> 分区数据
}

type vectorPartition struct {
	entries map[string]*vectorEntry
	nextSeq int64
}

type vectorEntry struct {
	id        string
	embedding []float64
	metadata  map[string]any
	seq       int64 // 插入序号，越大越新
}

// NewMemoryVectorStore 创建内存向量存储实例。
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		partitions: make(map[string]*vectorPartition),
	}
}

func (m *MemoryVectorStore) Name() string { return "memory_vector" }

// Search 实现 core.VectorService 接口。
// 空分区返回空结果；维度不匹配的条目相似度为 0，自然沉底。
func (m *MemoryVectorStore) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search request is nil")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	part, ok := m.partitions[req.Partition.Key()]
	if !ok {
		return &core.VectorSearchResult{Items: []core.VectorSearchItem{}}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	excluded := make(map[string]bool, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		excluded[id] = true
	}

	scored := make([]*vectorEntry, 0, len(part.entries))
	sims := make(map[string]float64, len(part.entries))
	for id, e := range part.entries {
		if excluded[id] {
			continue
		}
		sims[id] = vecmath.CosineSimilarity(req.Vector, e.embedding)
		scored = append(scored, e)
	}

	// 降序；同分按插入序（先入库者在前），保证结果确定性
	sort.Slice(scored, func(i, j int) bool {
		si, sj := sims[scored[i].id], sims[scored[j].id]
		if si != sj {
			return si > sj
		}
		return scored[i].seq < scored[j].seq
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	items := make([]core.VectorSearchItem, len(scored))
	for i, e := range scored {
		items[i] = core.VectorSearchItem{
			ID:         e.id,
			Similarity: sims[e.id],
			Embedding:  e.embedding,
			Metadata:   e.metadata,
		}
	}
	return &core.VectorSearchResult{Items: items}, nil
}

// Recent 实现 core.VectorService 接口：按插入序倒排，返回至多 limit 条。
func (m *MemoryVectorStore) Recent(ctx context.Context, partition core.Partition, limit int) ([]core.VectorEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	part, ok := m.partitions[partition.Key()]
	if !ok || limit <= 0 {
		return nil, nil
	}

	entries := make([]*vectorEntry, 0, len(part.entries))
	for _, e := range part.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq > entries[j].seq
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]core.VectorEntry, len(entries))
	for i, e := range entries {
		out[i] = core.VectorEntry{ID: e.id, Embedding: e.embedding}
	}
	return out, nil
}

func (m *MemoryVectorStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partitions = make(map[string]*vectorPartition)
	return nil
}

// Upsert 实现 core.VectorDatabaseService 接口：幂等插入或替换。
func (m *MemoryVectorStore) Upsert(ctx context.Context, req *core.VectorUpsertRequest) error {
	if req == nil {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "upsert request is nil")
	}
	if req.ID == "" {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "entry id is required")
	}
	if len(req.Embedding) == 0 {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "embedding is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := req.Partition.Key()
	part, ok := m.partitions[key]
	if !ok {
		part = &vectorPartition{entries: make(map[string]*vectorEntry)}
		m.partitions[key] = part
	}

	part.nextSeq++
	part.entries[req.ID] = &vectorEntry{
		id:        req.ID,
		embedding: req.Embedding,
		metadata:  req.Metadata,
		seq:       part.nextSeq,
	}
	return nil
}

// Delete 实现 core.VectorDatabaseService 接口。
func (m *MemoryVectorStore) Delete(ctx context.Context, partition core.Partition, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	part, ok := m.partitions[partition.Key()]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(part.entries, id)
	}
	return nil
}

// DropPartition 实现 core.VectorDatabaseService 接口。
func (m *MemoryVectorStore) DropPartition(ctx context.Context, partition core.Partition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.partitions, partition.Key())
	return nil
}

// HasPartition 实现 core.VectorDatabaseService 接口。
func (m *MemoryVectorStore) HasPartition(ctx context.Context, partition core.Partition) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.partitions[partition.Key()]
	return exists, nil
}

var (
	_ core.VectorService         = (*MemoryVectorStore)(nil)
	_ core.VectorDatabaseService = (*MemoryVectorStore)(nil)
)
