// Package history 维护租户的推荐历史（Recent-Output Records）：
// 每完成一次推荐追加一条记录，供冷却期排除与 MMR 冗余惩罚读取。
// 记录只追加、只读取，归档/删除是外部关注点。
package history

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/outfitkit/outfitkit/core"
)

// RecommendationText 把一次推荐压成文本表示：查询、各搭配描述与用到的
// 单品 ID。向量化后作为记录的 Embedding 存储，供后续 MMR 冗余惩罚对比
// 实际推荐过的内容。
func RecommendationText(query string, descriptions []string, itemIDs []string) string {
	parts := make([]string, 0, len(descriptions)+3)
	parts = append(parts, "Query: "+query, "Outfits recommended:")
	parts = append(parts, descriptions...)
	parts = append(parts, "Items used: "+strings.Join(itemIDs, ", "))
	return strings.Join(parts, " | ")
}

// Record 是一次已完成推荐的落库形态。
// Groups 为每套搭配的成员单品 ID（一组对应一个 "choice"）；
// Embedding 为整次推荐的文本向量，供后续 MMR 对比。
type Record struct {
	ID        string     `json:"id"`
	Query     string     `json:"query,omitempty"`
	Groups    [][]string `json:"groups"`
	Embedding []float64  `json:"embedding,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Service 基于 KeyValueStore 维护按时间倒排的推荐历史。
//
// 存储布局（每个租户两类 key）：
//   - history:{tenant}:idx       SortedSet: 记录 key -> 单调递增序号
//   - history:{tenant}:rec:{seq} JSON Record
//
// Vectors 可选：设置后 Append 会把推荐向量同步写入 recommendation 分区，
// 使 Recent 向量检索走向量存储而不是逐条解析 JSON。
type Service struct {
	Store   core.KeyValueStore
	Vectors core.VectorDatabaseService

	mu      sync.Mutex
	lastSeq int64
}

func NewService(store core.KeyValueStore) *Service {
	return &Service{Store: store}
}

// NewServiceWithVectors 创建同时写入向量存储的历史服务。
func NewServiceWithVectors(store core.KeyValueStore, vectors core.VectorDatabaseService) *Service {
	return &Service{Store: store, Vectors: vectors}
}

func idxKey(tenant string) string { return "history:" + tenant + ":idx" }

func recKey(tenant string, seq int64) string {
	return "history:" + tenant + ":rec:" + strconv.FormatInt(seq, 10)
}

// nextSeq 返回进程内单调递增的序号（纳秒时间戳守护单调性）。
func (s *Service) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

// Append 追加一条推荐记录。这是推荐流程的唯一提交点：
// 调用方只在产出最终排序结果后调用；中途取消的请求不会留下任何痕迹。
func (s *Service) Append(ctx context.Context, tenant string, rec Record) (string, error) {
	if tenant == "" {
		return "", core.NewDomainError(core.ModuleHistory, core.ErrorCodeInvalidInput, "history: tenant is required")
	}

	seq := s.nextSeq()
	rec.ID = "rec_" + strconv.FormatInt(seq, 10)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", core.NewDomainError(core.ModuleHistory, core.ErrorCodeInvalidInput, "history: marshal record: "+err.Error())
	}

	key := recKey(tenant, seq)
	if err := s.Store.Set(ctx, key, data); err != nil {
		return "", err
	}
	if err := s.Store.ZAdd(ctx, idxKey(tenant), float64(seq), key); err != nil {
		return "", err
	}

	// 推荐向量同步入库，供后续多样性对比
	if s.Vectors != nil && len(rec.Embedding) > 0 {
		err := s.Vectors.Upsert(ctx, &core.VectorUpsertRequest{
			Partition: core.Partition{Tenant: tenant, Class: core.ClassRecommendation},
			ID:        rec.ID,
			Embedding: rec.Embedding,
			Metadata:  map[string]any{"query": rec.Query, "created_at": rec.CreatedAt.Format(time.RFC3339)},
		})
		if err != nil {
			// 向量入库失败不回滚记录本身：下一次多样性对比少一条历史而已
			return rec.ID, err
		}
	}
	return rec.ID, nil
}

// Recent 返回最近的至多 limit 条记录，从新到旧。
func (s *Service) Recent(ctx context.Context, tenant string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	keys, err := s.Store.ZRange(ctx, idxKey(tenant), 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		data, ok := values[key]
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue // 损坏的记录跳过，不中断整批
		}
		records = append(records, rec)
	}
	return records, nil
}

// RecentlyUsedIDs 实现冷却期追踪：扫描最近 lookback 条记录，
// 合并所有分组的成员单品 ID，最多返回 maxIDs 个。
// 截断顺序为确定性的首次出现序（从最新记录开始）。
func (s *Service) RecentlyUsedIDs(ctx context.Context, tenant string, lookback, maxIDs int) ([]string, error) {
	if lookback <= 0 || maxIDs <= 0 {
		return nil, nil
	}

	records, err := s.Recent(ctx, tenant, lookback)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	used := make([]string, 0, maxIDs)
	for _, rec := range records {
		for _, group := range rec.Groups {
			for _, id := range group {
				if seen[id] {
					continue
				}
				seen[id] = true
				used = append(used, id)
				if len(used) >= maxIDs {
					return used, nil
				}
			}
		}
	}
	return used, nil
}

// RecentEmbeddings 返回最近 limit 条推荐的向量，供 MMR 冗余惩罚使用。
// 优先走向量存储的 Recent；未配置向量存储时回退到记录内嵌向量。
func (s *Service) RecentEmbeddings(ctx context.Context, tenant string, limit int) ([][]float64, error) {
	if s.Vectors != nil {
		entries, err := s.Vectors.Recent(ctx, core.Partition{Tenant: tenant, Class: core.ClassRecommendation}, limit)
		if err != nil {
			return nil, err
		}
		vecs := make([][]float64, 0, len(entries))
		for _, e := range entries {
			if len(e.Embedding) > 0 {
				vecs = append(vecs, e.Embedding)
			}
		}
		return vecs, nil
	}

	records, err := s.Recent(ctx, tenant, limit)
	if err != nil {
		return nil, err
	}
	vecs := make([][]float64, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) > 0 {
			vecs = append(vecs, rec.Embedding)
		}
	}
	return vecs, nil
}
