package store

import (
	"context"
	"testing"

	"github.com/outfitkit/outfitkit/core"
)

func upsertAll(t *testing.T, s *MemoryVectorStore, p core.Partition, entries map[string][]float64, order []string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range order {
		err := s.Upsert(ctx, &core.VectorUpsertRequest{
			Partition: p,
			ID:        id,
			Embedding: entries[id],
		})
		if err != nil {
			t.Fatalf("Upsert(%s) error: %v", id, err)
		}
	}
}

func TestMemoryVectorStore_SearchOrdering(t *testing.T) {
	s := NewMemoryVectorStore()
	p := core.Partition{Tenant: "alice", Class: core.ClassWardrobeItem}

	// 相对查询 [1,0] 的相似度：high=0.9x, mid=0.5x, low=0.2x 量级
	upsertAll(t, s, p, map[string][]float64{
		"high": {1, 0.1},
		"mid":  {1, 1.7},
		"low":  {1, 4.9},
	}, []string{"low", "mid", "high"})

	res, err := s.Search(context.Background(), &core.VectorSearchRequest{
		Partition: p,
		Vector:    []float64{1, 0},
		Limit:     2,
	})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(res.Items))
	}
	if res.Items[0].ID != "high" || res.Items[1].ID != "mid" {
		t.Errorf("got order [%s %s], want [high mid]", res.Items[0].ID, res.Items[1].ID)
	}
	if res.Items[0].Similarity < res.Items[1].Similarity {
		t.Errorf("similarities not descending: %v then %v", res.Items[0].Similarity, res.Items[1].Similarity)
	}
}

func TestMemoryVectorStore_SearchExcludes(t *testing.T) {
	s := NewMemoryVectorStore()
	p := core.Partition{Tenant: "alice", Class: core.ClassWardrobeItem}
	upsertAll(t, s, p, map[string][]float64{
		"best":  {1, 0},
		"other": {1, 1},
	}, []string{"best", "other"})

	res, err := s.Search(context.Background(), &core.VectorSearchRequest{
		Partition:  p,
		Vector:     []float64{1, 0},
		Limit:      10,
		ExcludeIDs: []string{"best"},
	})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	for _, item := range res.Items {
		if item.ID == "best" {
			t.Fatal("excluded id appeared in results")
		}
	}
	if len(res.Items) != 1 || res.Items[0].ID != "other" {
		t.Errorf("got %+v, want single item 'other'", res.Items)
	}
}

func TestMemoryVectorStore_EmptyPartition(t *testing.T) {
	s := NewMemoryVectorStore()
	res, err := s.Search(context.Background(), &core.VectorSearchRequest{
		Partition: core.Partition{Tenant: "nobody", Class: core.ClassWardrobeItem},
		Vector:    []float64{1, 0},
		Limit:     5,
	})
	if err != nil {
		t.Fatalf("empty partition should not error, got %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("empty partition returned %d items", len(res.Items))
	}
}

func TestMemoryVectorStore_TenantIsolation(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()
	alice := core.Partition{Tenant: "alice", Class: core.ClassWardrobeItem}
	bob := core.Partition{Tenant: "bob", Class: core.ClassWardrobeItem}

	// 两个租户下相同的 ID 是不同实体
	upsertAll(t, s, alice, map[string][]float64{"item_1": {1, 0}}, []string{"item_1"})
	upsertAll(t, s, bob, map[string][]float64{"item_1": {0, 1}}, []string{"item_1"})

	res, err := s.Search(ctx, &core.VectorSearchRequest{
		Partition: bob,
		Vector:    []float64{0, 1},
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("bob sees %d items, want 1", len(res.Items))
	}
	if res.Items[0].Similarity < 0.99 {
		t.Errorf("bob got alice's vector: similarity %v", res.Items[0].Similarity)
	}
}

func TestMemoryVectorStore_Recent(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()
	p := core.Partition{Tenant: "alice", Class: core.ClassRecommendation}

	upsertAll(t, s, p, map[string][]float64{
		"rec_1": {1, 0},
		"rec_2": {0, 1},
		"rec_3": {1, 1},
	}, []string{"rec_1", "rec_2", "rec_3"})

	entries, err := s.Recent(ctx, p, 2)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "rec_3" || entries[1].ID != "rec_2" {
		t.Errorf("got order [%s %s], want [rec_3 rec_2]", entries[0].ID, entries[1].ID)
	}

	// Upsert 同一 ID 刷新其"最近"位置
	upsertAll(t, s, p, map[string][]float64{"rec_1": {0.5, 0.5}}, []string{"rec_1"})
	entries, err = s.Recent(ctx, p, 1)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "rec_1" {
		t.Errorf("after re-upsert, most recent = %+v, want rec_1", entries)
	}
}

func TestMemoryVectorStore_UpsertIdempotent(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()
	p := core.Partition{Tenant: "alice", Class: core.ClassWardrobeItem}

	upsertAll(t, s, p, map[string][]float64{"item_1": {1, 0}}, []string{"item_1"})
	upsertAll(t, s, p, map[string][]float64{"item_1": {0, 1}}, []string{"item_1"})

	res, err := s.Search(ctx, &core.VectorSearchRequest{Partition: p, Vector: []float64{0, 1}, Limit: 10})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("re-upsert duplicated the entry: %d items", len(res.Items))
	}
	if res.Items[0].Similarity < 0.99 {
		t.Errorf("re-upsert did not replace embedding: similarity %v", res.Items[0].Similarity)
	}
}

func TestMemoryVectorStore_DeleteAndDrop(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()
	p := core.Partition{Tenant: "alice", Class: core.ClassWardrobeItem}
	upsertAll(t, s, p, map[string][]float64{
		"a": {1, 0},
		"b": {0, 1},
	}, []string{"a", "b"})

	if err := s.Delete(ctx, p, []string{"a"}); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	res, _ := s.Search(ctx, &core.VectorSearchRequest{Partition: p, Vector: []float64{1, 0}, Limit: 10})
	if len(res.Items) != 1 || res.Items[0].ID != "b" {
		t.Errorf("after delete got %+v, want only 'b'", res.Items)
	}

	if err := s.DropPartition(ctx, p); err != nil {
		t.Fatalf("DropPartition error: %v", err)
	}
	exists, err := s.HasPartition(ctx, p)
	if err != nil {
		t.Fatalf("HasPartition error: %v", err)
	}
	if exists {
		t.Error("partition still exists after drop")
	}
}
