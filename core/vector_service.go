package core

import "context"

// ItemClass 标识向量分区中的条目类别。
// 同一租户的画像、衣橱单品、历史推荐分别存放在独立分区中。
type ItemClass string

const (
	ClassProfile        ItemClass = "profile"        // 用户画像向量
	ClassWardrobeItem   ItemClass = "item"           // 衣橱单品向量
	ClassRecommendation ItemClass = "recommendation" // 历史推荐向量
)

// Partition 是向量存储的逻辑分区：(租户, 条目类别) 复合键。
// 所有存储与检索都以分区为作用域，不同租户下相同的条目 ID 是不同实体，互不可见。
type Partition struct {
	Tenant string
	Class  ItemClass
}

// Key 返回分区的规范化字符串表示，供后端实现作为存储 key 使用。
func (p Partition) Key() string {
	return p.Tenant + ":" + string(p.Class)
}

// VectorService 是向量检索服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - Selector / Ranker 只依赖此接口，不感知具体后端
//
// 行为约定：
//   - Search 结果严格按相似度降序，排除 ExcludeIDs 中的条目；
//     空分区返回空结果而不是错误
//   - 最低相似度门槛由调用方应用（见 RetrievalConfig.DefaultMinSimilarity），
//     存储层不做硬编码过滤
//   - 后端连接故障返回 UNAVAILABLE 领域错误，调用方降级为空候选并记录观测标签
//
// 实现：
//   - store.MemoryVectorStore（内存实现，测试/开发）
//   - store.RedisVectorStore（Redis 实现，生产）
type VectorService interface {
	// Search 在分区内做向量相似度检索
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Recent 返回分区内最近插入的至多 limit 条 (id, embedding)。
	// 后端无法保证严格的插入序时，仍须返回确定性的有界子集，绝不返回全量。
	Recent(ctx context.Context, partition Partition, limit int) ([]VectorEntry, error)

	// Close 关闭连接
	Close() error
}

// VectorDatabaseService 是完整的向量存储服务接口，在检索接口之上增加写入与分区管理。
//
// 使用场景：
//   - 单品入库：衣橱条目处理完成后 Upsert 其向量
//   - 推荐提交：历史推荐向量落库，供后续多样性对比
//   - 数据清理：按租户删除分区
type VectorDatabaseService interface {
	VectorService

	// Upsert 幂等地插入或替换分区内的一条向量，无分区外副作用
	Upsert(ctx context.Context, req *VectorUpsertRequest) error

	// Delete 删除分区内指定 ID 的条目
	Delete(ctx context.Context, partition Partition, ids []string) error

	// DropPartition 删除整个分区
	DropPartition(ctx context.Context, partition Partition) error

	// HasPartition 检查分区是否存在
	HasPartition(ctx context.Context, partition Partition) (bool, error)
}

// VectorSearchRequest 向量检索请求
type VectorSearchRequest struct {
	// Partition 目标分区
	Partition Partition

	// Vector 查询向量
	Vector []float64

	// Limit 返回条数上限
	Limit int

	// ExcludeIDs 检索时排除的条目 ID（冷却期条目与显式排除项）
	ExcludeIDs []string
}

// VectorSearchItem 单个检索结果项
type VectorSearchItem struct {
	// ID 条目 ID
	ID string

	// Similarity 归一化相似度，[0, 1]
	Similarity float64

	// Embedding 条目向量，供下游 MMR 做冗余对比
	Embedding []float64

	// Metadata 入库时附带的元数据（本核心不解释其语义）
	Metadata map[string]any
}

// VectorSearchResult 检索结果
type VectorSearchResult struct {
	// Items 检索结果项列表（按相似度降序）
	Items []VectorSearchItem
}

// VectorEntry 是 Recent 返回的 (id, embedding) 对。
type VectorEntry struct {
	ID        string
	Embedding []float64
}

// VectorUpsertRequest 向量插入/替换请求
type VectorUpsertRequest struct {
	// Partition 目标分区
	Partition Partition

	// ID 条目 ID
	ID string

	// Embedding 向量
	Embedding []float64

	// Metadata 元数据（可选）
	Metadata map[string]any
}
