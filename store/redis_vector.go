package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/pkg/vecmath"
)

// RedisVectorStore 是 Redis 实现的向量存储（生产）。
//
// 存储布局（每个分区三个 key）：
//   - vec:{tenant}:{class}       Hash:      id -> JSON embedding
//   - vec:{tenant}:{class}:meta  Hash:      id -> JSON metadata
//   - vec:{tenant}:{class}:seq   SortedSet: id -> 插入序号（INCR 计数器）
//
// 检索为客户端精确打分：整个分区 HGETALL 后计算余弦相似度。
// 衣橱规模（单租户数百条以内）下一次往返即可，无需 ANN 索引。
// 无法解析的向量条目被跳过，不中断整批检索。
//
// 连接故障统一转为 UNAVAILABLE 领域错误，调用方据此降级为空候选。
type RedisVectorStore struct {
	client *redis.Client
}

func NewRedisVectorStore(addr string, db int) (*RedisVectorStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, unavailable(err)
	}
	return &RedisVectorStore{client: client}, nil
}

// NewRedisVectorStoreWithClient 复用已有的 redis 客户端（连接池共享）。
func NewRedisVectorStoreWithClient(client *redis.Client) *RedisVectorStore {
	return &RedisVectorStore{client: client}
}

func (r *RedisVectorStore) Name() string { return "redis_vector" }

func vecKey(p core.Partition) string  { return "vec:" + p.Key() }
func metaKey(p core.Partition) string { return "vec:" + p.Key() + ":meta" }
func seqKey(p core.Partition) string  { return "vec:" + p.Key() + ":seq" }
func ctrKey(p core.Partition) string  { return "vec:" + p.Key() + ":ctr" }

func unavailable(err error) error {
	return core.NewDomainError(core.ModuleVector, core.ErrorCodeUnavailable, "vector backend unavailable: "+err.Error())
}

// Search 实现 core.VectorService 接口。
func (r *RedisVectorStore) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search request is nil")
	}

	raw, err := r.client.HGetAll(ctx, vecKey(req.Partition)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(raw) == 0 {
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

	// 按插入序作为同分 tiebreak，保证确定性
	seqs, err := r.client.ZRangeWithScores(ctx, seqKey(req.Partition), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, unavailable(err)
	}
	seqOf := make(map[string]float64, len(seqs))
	for _, z := range seqs {
		if member, ok := z.Member.(string); ok {
			seqOf[member] = z.Score
		}
	}

	type scored struct {
		id  string
		sim float64
		vec []float64
	}
	results := make([]scored, 0, len(raw))
	for id, data := range raw {
		if excluded[id] {
			continue
		}
		vec, ok := vecmath.ParseEmbedding([]byte(data))
		if !ok {
			continue // 损坏的记录跳过，不中断整批
		}
		results = append(results, scored{id: id, sim: vecmath.CosineSimilarity(req.Vector, vec), vec: vec})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].sim != results[j].sim {
			return results[i].sim > results[j].sim
		}
		return seqOf[results[i].id] < seqOf[results[j].id]
	})
	if len(results) > limit {
		results = results[:limit]
	}

	items := make([]core.VectorSearchItem, 0, len(results))
	for _, res := range results {
		items = append(items, core.VectorSearchItem{
			ID:         res.id,
			Similarity: res.sim,
			Embedding:  res.vec,
			Metadata:   r.fetchMetadata(ctx, req.Partition, res.id),
		})
	}
	return &core.VectorSearchResult{Items: items}, nil
}

func (r *RedisVectorStore) fetchMetadata(ctx context.Context, p core.Partition, id string) map[string]any {
	data, err := r.client.HGet(ctx, metaKey(p), id).Bytes()
	if err != nil {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return meta
}

// Recent 实现 core.VectorService 接口：按插入序号从新到旧返回至多 limit 条。
func (r *RedisVectorStore) Recent(ctx context.Context, partition core.Partition, limit int) ([]core.VectorEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := r.client.ZRevRange(ctx, seqKey(partition), 0, int64(limit)-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := r.client.HMGet(ctx, vecKey(partition), ids...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]core.VectorEntry, 0, len(ids))
	for i, id := range ids {
		if vals[i] == nil {
			continue
		}
		s, ok := vals[i].(string)
		if !ok {
			continue
		}
		vec, ok := vecmath.ParseEmbedding([]byte(s))
		if !ok {
			continue
		}
		out = append(out, core.VectorEntry{ID: id, Embedding: vec})
	}
	return out, nil
}

func (r *RedisVectorStore) Close() error {
	return r.client.Close()
}

// Upsert 实现 core.VectorDatabaseService 接口：HSET 覆盖写，插入序号刷新。
func (r *RedisVectorStore) Upsert(ctx context.Context, req *core.VectorUpsertRequest) error {
	if req == nil {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "upsert request is nil")
	}
	if req.ID == "" || len(req.Embedding) == 0 {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "entry id and embedding are required")
	}

	seq, err := r.client.Incr(ctx, ctrKey(req.Partition)).Result()
	if err != nil {
		return unavailable(err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, vecKey(req.Partition), req.ID, vecmath.MarshalEmbedding(req.Embedding))
	pipe.ZAdd(ctx, seqKey(req.Partition), redis.Z{Score: float64(seq), Member: req.ID})
	if req.Metadata != nil {
		if data, err := json.Marshal(req.Metadata); err == nil {
			pipe.HSet(ctx, metaKey(req.Partition), req.ID, data)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Delete 实现 core.VectorDatabaseService 接口。
func (r *RedisVectorStore) Delete(ctx context.Context, partition core.Partition, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	pipe := r.client.Pipeline()
	pipe.HDel(ctx, vecKey(partition), ids...)
	pipe.HDel(ctx, metaKey(partition), ids...)
	pipe.ZRem(ctx, seqKey(partition), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// DropPartition 实现 core.VectorDatabaseService 接口。
func (r *RedisVectorStore) DropPartition(ctx context.Context, partition core.Partition) error {
	err := r.client.Del(ctx,
		vecKey(partition), metaKey(partition), seqKey(partition), ctrKey(partition),
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// HasPartition 实现 core.VectorDatabaseService 接口。
func (r *RedisVectorStore) HasPartition(ctx context.Context, partition core.Partition) (bool, error) {
	n, err := r.client.Exists(ctx, vecKey(partition)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

var (
	_ core.VectorService         = (*RedisVectorStore)(nil)
	_ core.VectorDatabaseService = (*RedisVectorStore)(nil)
)
