package filter

import (
	"context"
	"testing"

	"github.com/outfitkit/outfitkit/core"
	"github.com/outfitkit/outfitkit/store"
)

func newItem(id string, score float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	return it
}

func TestFilterNode_CombinesFilters(t *testing.T) {
	node := &FilterNode{Filters: []Filter{
		&CooldownFilter{IDs: []string{"cool"}},
		&BlacklistFilter{ItemIDs: []string{"banned"}},
	}}
	items := []*core.Item{newItem("cool", 0.9), newItem("banned", 0.8), newItem("ok", 0.7)}

	got, err := node.Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("got %d items, want only [ok]", len(got))
	}
	// 被过滤的物品带上原因标签
	if lbl, ok := items[0].Labels["filtered"]; !ok || lbl.Source != "filter.cooldown" {
		t.Errorf("cool item label = %v, want source filter.cooldown", items[0].Labels["filtered"])
	}
	if lbl, ok := items[1].Labels["filtered"]; !ok || lbl.Source != "filter.blacklist" {
		t.Errorf("banned item label = %v, want source filter.blacklist", items[1].Labels["filtered"])
	}
}

func TestCooldownFilter_ReadsContextIDs(t *testing.T) {
	rctx := &core.RecommendContext{TenantID: "alice"}
	rctx.SetCooldownIDs([]string{"worn_recently"})

	f := &CooldownFilter{}
	ok, err := f.ShouldFilter(context.Background(), rctx, newItem("worn_recently", 0.9))
	if err != nil || !ok {
		t.Errorf("expected cooldown hit, got ok=%v err=%v", ok, err)
	}
	ok, _ = f.ShouldFilter(context.Background(), rctx, newItem("fresh", 0.9))
	if ok {
		t.Error("fresh item must pass cooldown filter")
	}
}

func TestBlacklistFilter_StoreBacked(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()
	if err := kv.Set(ctx, "blacklist:alice", []byte(`["hidden"]`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	f := &BlacklistFilter{Store: NewStoreAdapter(kv), KeyPrefix: "blacklist"}
	rctx := &core.RecommendContext{TenantID: "alice"}

	ok, err := f.ShouldFilter(ctx, rctx, newItem("hidden", 0.9))
	if err != nil || !ok {
		t.Errorf("expected blacklist hit, got ok=%v err=%v", ok, err)
	}

	// 其他租户不受 alice 的黑名单影响
	other := &core.RecommendContext{TenantID: "bob"}
	ok, _ = f.ShouldFilter(ctx, other, newItem("hidden", 0.9))
	if ok {
		t.Error("blacklist leaked across tenants")
	}
}

func TestRuleFilter_MetadataExpression(t *testing.T) {
	f, err := NewRuleFilter(`meta["season"] == "winter"`)
	if err != nil {
		t.Fatalf("NewRuleFilter error: %v", err)
	}

	winter := newItem("coat", 0.9)
	winter.Meta["season"] = "winter"
	summer := newItem("shorts", 0.9)
	summer.Meta["season"] = "summer"

	ok, err := f.ShouldFilter(context.Background(), nil, winter)
	if err != nil || !ok {
		t.Errorf("winter item: ok=%v err=%v, want filtered", ok, err)
	}
	ok, err = f.ShouldFilter(context.Background(), nil, summer)
	if err != nil || ok {
		t.Errorf("summer item: ok=%v err=%v, want kept", ok, err)
	}
}

func TestRuleFilter_ScoreExpression(t *testing.T) {
	f, err := NewRuleFilter(`item.score < 0.35`)
	if err != nil {
		t.Fatalf("NewRuleFilter error: %v", err)
	}

	ok, _ := f.ShouldFilter(context.Background(), nil, newItem("weak", 0.2))
	if !ok {
		t.Error("low score item must be filtered")
	}
	ok, _ = f.ShouldFilter(context.Background(), nil, newItem("strong", 0.8))
	if ok {
		t.Error("high score item must pass")
	}
}

func TestRuleFilter_CompileError(t *testing.T) {
	if _, err := NewRuleFilter(`meta[`); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestFilterNode_FilterErrorKeepsItem(t *testing.T) {
	// 表达式运行时出错（访问不存在的 key）时保留物品，不中断流程
	f := &RuleFilter{Expr: `meta.nonexistent == "x"`}
	node := &FilterNode{Filters: []Filter{f}}

	got, err := node.Process(context.Background(), nil, []*core.Item{newItem("a", 0.5)})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("item dropped on filter error, got %d items", len(got))
	}
}
