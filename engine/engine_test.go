package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/history"
	"github.com/outfitkit/outfitkit/store"
)

// fakeEmbedder 返回固定向量并记录每次向量化的文本。
type fakeEmbedder struct {
	vec   []float64
	err   error
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

// fakeComposer 把候选两两配对成搭配，置信度递减。
type fakeComposer struct {
	err   error
	empty bool
	got   []*core.Item
}

func (f *fakeComposer) Compose(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]core.ScoredOutfit, error) {
	f.got = items
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return []core.ScoredOutfit{}, nil
	}
	var outfits []core.ScoredOutfit
	for i := 0; i+1 < len(items); i += 2 {
		outfits = append(outfits, core.ScoredOutfit{
			OutfitID:   i + 100,
			Name:       items[i].ID + "+" + items[i+1].ID,
			ItemIDs:    []string{items[i].ID, items[i+1].ID},
			Confidence: 0.9 - float64(i)*0.1,
		})
	}
	return outfits, nil
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryVectorStore, *fakeComposer) {
	t.Helper()
	vectors := store.NewMemoryVectorStore()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })

	composer := &fakeComposer{}
	eng := &Engine{
		Vectors:  vectors,
		History:  history.NewServiceWithVectors(kv, vectors),
		Embedder: &fakeEmbedder{vec: []float64{1, 0}},
		Composer: composer,
	}
	return eng, vectors, composer
}

func seedItems(t *testing.T, vectors *store.MemoryVectorStore, tenant string, vecs map[string][]float64, order []string) {
	t.Helper()
	for _, id := range order {
		err := vectors.Upsert(context.Background(), &core.VectorUpsertRequest{
			Partition: core.Partition{Tenant: tenant, Class: core.ClassWardrobeItem},
			ID:        id,
			Embedding: vecs[id],
		})
		if err != nil {
			t.Fatalf("Upsert(%s) error: %v", id, err)
		}
	}
}

func TestEngine_RecommendEndToEnd(t *testing.T) {
	eng, vectors, _ := newTestEngine(t)
	seedItems(t, vectors, "alice", map[string][]float64{
		"blazer": {1, 0.1},
		"shirt":  {1, 0.3},
		"jeans":  {0.8, 0.6},
		"boots":  {0.6, 0.8},
	}, []string{"blazer", "shirt", "jeans", "boots"})

	resp, err := eng.Recommend(context.Background(), &Request{
		TenantID: "alice",
		Query:    "business casual",
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if len(resp.Outfits) == 0 {
		t.Fatal("expected outfits")
	}
	for i, o := range resp.Outfits {
		if o.Rank != i+1 || o.OutfitID != i+1 {
			t.Errorf("outfit %d: rank=%d id=%d, want %d", i, o.Rank, o.OutfitID, i+1)
		}
		if o.Fused == 0 {
			t.Errorf("outfit %d: fused score not computed", i)
		}
		if i > 0 && resp.Outfits[i-1].Fused < o.Fused {
			t.Errorf("outfits not sorted by fused score at %d", i)
		}
	}
	if resp.RecordID == "" {
		t.Error("successful recommendation must commit a history record")
	}

	// 落库记录可读且包含本次分组
	recs, err := eng.History.Recent(context.Background(), "alice", 1)
	if err != nil || len(recs) != 1 {
		t.Fatalf("Recent: recs=%d err=%v", len(recs), err)
	}
	if len(recs[0].Groups) != len(resp.Outfits) {
		t.Errorf("record groups = %d, want %d", len(recs[0].Groups), len(resp.Outfits))
	}
}

type embedderFunc func(text string) ([]float64, error)

func (f embedderFunc) Embed(_ context.Context, text string) ([]float64, error) { return f(text) }

func TestEngine_HistoryStoresRecommendationEmbedding(t *testing.T) {
	eng, vectors, _ := newTestEngine(t)
	seedItems(t, vectors, "alice", map[string][]float64{
		"a": {1, 0}, "b": {1, 0.2},
	}, []string{"a", "b"})

	// 查询向量与推荐内容向量不同：落库的必须是后者，
	// 否则重复查询时 MMR 会按相关度惩罚候选
	queryVec := []float64{1, 0}
	recVec := []float64{0, 1}
	var recText string
	eng.Embedder = embedderFunc(func(text string) ([]float64, error) {
		if strings.HasPrefix(text, "Query: ") {
			recText = text
			return recVec, nil
		}
		return queryVec, nil
	})

	_, err := eng.Recommend(context.Background(), &Request{TenantID: "alice", Query: "evening look"})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}

	recs, err := eng.History.Recent(context.Background(), "alice", 1)
	if err != nil || len(recs) != 1 {
		t.Fatalf("Recent: recs=%d err=%v", len(recs), err)
	}
	if len(recs[0].Embedding) != 2 || recs[0].Embedding[0] != 0 || recs[0].Embedding[1] != 1 {
		t.Errorf("record embedding = %v, want recommendation vector %v", recs[0].Embedding, recVec)
	}

	// 向量化文本携带查询、搭配描述与用到的单品 ID
	for _, part := range []string{"Query: evening look", "a+b", "Items used: a, b"} {
		if !strings.Contains(recText, part) {
			t.Errorf("recommendation text %q missing %q", recText, part)
		}
	}

	// 推荐分区拿到的也是推荐内容向量，供下一次 MMR 对比
	vecs, err := eng.History.RecentEmbeddings(context.Background(), "alice", 5)
	if err != nil || len(vecs) != 1 {
		t.Fatalf("RecentEmbeddings: vecs=%d err=%v", len(vecs), err)
	}
	if vecs[0][0] != 0 || vecs[0][1] != 1 {
		t.Errorf("stored vector = %v, want %v", vecs[0], recVec)
	}
}

func TestEngine_ProfileShapesQueryText(t *testing.T) {
	eng, vectors, _ := newTestEngine(t)
	seedItems(t, vectors, "alice", map[string][]float64{
		"a": {1, 0}, "b": {1, 0.2},
	}, []string{"a", "b"})
	emb := eng.Embedder.(*fakeEmbedder)

	profile := core.NewStyleProfile("alice")
	profile.SummaryText = "minimalist, prefers neutral colors"

	_, err := eng.Recommend(context.Background(), &Request{
		TenantID: "alice",
		Query:    "date night",
		Profile:  profile,
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	want := "date night. User style: minimalist, prefers neutral colors"
	if len(emb.texts) == 0 || emb.texts[0] != want {
		t.Errorf("embedded query text = %q, want %q", emb.texts, want)
	}
}

func TestEngine_CooldownExcludesRecentItems(t *testing.T) {
	eng, vectors, composer := newTestEngine(t)
	seedItems(t, vectors, "alice", map[string][]float64{
		"worn_a": {1, 0}, "worn_b": {1, 0.1},
		"new_a": {1, 0.2}, "new_b": {1, 0.3},
	}, []string{"worn_a", "worn_b", "new_a", "new_b"})

	// 先落一条历史：worn_a / worn_b 进入冷却期
	_, err := eng.History.Append(context.Background(), "alice", history.Record{
		Groups: [][]string{{"worn_a", "worn_b"}},
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}

	_, err = eng.Recommend(context.Background(), &Request{
		TenantID: "alice",
		Query:    "something fresh",
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	for _, it := range composer.got {
		if it.ID == "worn_a" || it.ID == "worn_b" {
			t.Errorf("cooldown item %s reached composer", it.ID)
		}
	}
}

func TestEngine_InsufficientItems(t *testing.T) {
	eng, vectors, _ := newTestEngine(t)
	seedItems(t, vectors, "alice", map[string][]float64{"only": {1, 0}}, []string{"only"})

	_, err := eng.Recommend(context.Background(), &Request{
		TenantID: "alice",
		Query:    "anything",
	})
	if err != core.ErrInsufficientItems {
		t.Fatalf("err = %v, want ErrInsufficientItems", err)
	}
	// 失败的请求不落历史
	recs, _ := eng.History.Recent(context.Background(), "alice", 10)
	if len(recs) != 0 {
		t.Errorf("failed request must not commit history, got %d records", len(recs))
	}
}

type downVectors struct{}

func (downVectors) Search(context.Context, *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeUnavailable, "vector backend unavailable")
}

func (downVectors) Recent(context.Context, core.Partition, int) ([]core.VectorEntry, error) {
	return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeUnavailable, "vector backend unavailable")
}

func (downVectors) Close() error { return nil }

func TestEngine_BackendUnavailableDegrades(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	eng.Vectors = downVectors{}

	resp, err := eng.Recommend(context.Background(), &Request{
		TenantID: "alice",
		Query:    "anything",
	})
	if err != nil {
		t.Fatalf("unavailable backend must degrade, got error %v", err)
	}
	if len(resp.Outfits) != 0 {
		t.Errorf("expected empty outfits, got %d", len(resp.Outfits))
	}
	if _, ok := resp.Labels["degraded"]; !ok {
		t.Error("degradation not labeled")
	}
	// 降级路径不落历史
	recs, _ := eng.History.Recent(context.Background(), "alice", 10)
	if len(recs) != 0 {
		t.Errorf("degraded request must not commit history, got %d records", len(recs))
	}
}

func TestEngine_EmbeddingAbsentDegrades(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	eng.Embedder = &fakeEmbedder{vec: nil}

	resp, err := eng.Recommend(context.Background(), &Request{TenantID: "alice", Query: "q"})
	if err != nil {
		t.Fatalf("absent embedding must degrade, got error %v", err)
	}
	if len(resp.Outfits) != 0 {
		t.Error("expected empty outfits")
	}
	if _, ok := resp.Labels["degraded"]; !ok {
		t.Error("degradation not labeled")
	}
}

func TestEngine_ComposerErrorPropagates(t *testing.T) {
	eng, vectors, composer := newTestEngine(t)
	composer.err = errors.New("model overloaded")
	seedItems(t, vectors, "alice", map[string][]float64{
		"a": {1, 0}, "b": {1, 0.2},
	}, []string{"a", "b"})

	_, err := eng.Recommend(context.Background(), &Request{TenantID: "alice", Query: "q"})
	if err == nil {
		t.Fatal("expected composer error")
	}
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want UNAVAILABLE domain error", err)
	}
	// 失败的请求不留历史痕迹
	recs, _ := eng.History.Recent(context.Background(), "alice", 10)
	if len(recs) != 0 {
		t.Errorf("failed request must not commit history, got %d records", len(recs))
	}
}

func TestEngine_LimitTruncatesAndReranks(t *testing.T) {
	eng, vectors, _ := newTestEngine(t)
	seedItems(t, vectors, "alice", map[string][]float64{
		"a": {1, 0}, "b": {1, 0.1}, "c": {1, 0.2}, "d": {1, 0.3},
		"e": {0.9, 0.4}, "f": {0.8, 0.5},
	}, []string{"a", "b", "c", "d", "e", "f"})

	resp, err := eng.Recommend(context.Background(), &Request{
		TenantID: "alice",
		Query:    "q",
		Limit:    1,
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if len(resp.Outfits) != 1 {
		t.Fatalf("got %d outfits, want 1", len(resp.Outfits))
	}
	if resp.Outfits[0].Rank != 1 || resp.Outfits[0].OutfitID != 1 {
		t.Errorf("truncated outfit rank/id = %d/%d, want 1/1",
			resp.Outfits[0].Rank, resp.Outfits[0].OutfitID)
	}
}

func TestEngine_ValidatesInput(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if _, err := eng.Recommend(context.Background(), &Request{Query: "q"}); err == nil {
		t.Error("missing tenant must error")
	}
	if _, err := eng.Recommend(context.Background(), &Request{TenantID: "a"}); err == nil {
		t.Error("missing query must error")
	}
	if _, err := eng.Recommend(context.Background(), nil); err == nil {
		t.Error("nil request must error")
	}
}
