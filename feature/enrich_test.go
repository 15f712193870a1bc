package feature

import (
	"context"
	"testing"

	"github.com/outfitkit/outfitkit/core"
)

func TestEnrichNode_AttachesItemAndUserFeatures(t *testing.T) {
	svc := NewStaticFeatureService()
	svc.SetItemFeatures("blazer", map[string]float64{"versatility": 0.8, "formality": 0.9})
	svc.SetUserFeatures("alice", map[string]float64{"style_consistency": 0.7})

	node := &EnrichNode{Features: svc, WithUserFeatures: true}
	rctx := &core.RecommendContext{TenantID: "alice"}
	items := []*core.Item{core.NewItem("blazer"), core.NewItem("unknown")}

	got, err := node.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if got[0].Features["versatility"] != 0.8 || got[0].Features["formality"] != 0.9 {
		t.Errorf("blazer features = %v", got[0].Features)
	}
	if got[0].Features["user_style_consistency"] != 0.7 {
		t.Errorf("user feature missing: %v", got[0].Features)
	}
	// 无特征的单品仍保留，且带上租户特征
	if got[1].Features["user_style_consistency"] != 0.7 {
		t.Errorf("unknown item features = %v", got[1].Features)
	}
	if _, ok := got[1].Features["versatility"]; ok {
		t.Error("unknown item must not inherit another item's features")
	}
}

func TestEnrichNode_NilServiceIsPassthrough(t *testing.T) {
	node := &EnrichNode{}
	items := []*core.Item{core.NewItem("a")}
	got, err := node.Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(got) != 1 || len(got[0].Features) != 0 {
		t.Errorf("passthrough changed items: %v", got)
	}
}

func TestStaticFeatureService_BatchGet(t *testing.T) {
	svc := NewStaticFeatureService()
	svc.SetItemFeatures("a", map[string]float64{"x": 1})
	svc.SetItemFeatures("b", map[string]float64{"x": 2})

	got, err := svc.BatchGetItemFeatures(context.Background(), []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGetItemFeatures error: %v", err)
	}
	if len(got) != 2 || got["a"]["x"] != 1 || got["b"]["x"] != 2 {
		t.Errorf("got %v", got)
	}

	// 返回的是副本，修改不回写
	got["a"]["x"] = 99
	again, _ := svc.GetItemFeatures(context.Background(), "a")
	if again["x"] != 1 {
		t.Error("batch result aliased internal map")
	}
}
