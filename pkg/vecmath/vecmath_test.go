package vecmath

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{name: "identical vectors", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1.0},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1.0},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, want: 0.0},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1, 2, 3}, want: 0.0},
		{name: "empty a", a: nil, b: []float64{1, 2}, want: 0.0},
		{name: "empty both", a: nil, b: nil, want: 0.0},
		{name: "zero magnitude", a: []float64{0, 0}, b: []float64{1, 2}, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityBounds(t *testing.T) {
	pairs := [][2][]float64{
		{{0.3, -0.7, 0.2}, {0.5, 0.1, -0.9}},
		{{1, 1, 1, 1}, {2, 3, 4, 5}},
		{{-0.1, 0.2}, {0.4, -0.8}},
	}
	for _, p := range pairs {
		sim := CosineSimilarity(p[0], p[1])
		if sim < -1.0-1e-9 || sim > 1.0+1e-9 {
			t.Errorf("CosineSimilarity(%v, %v) = %v out of [-1, 1]", p[0], p[1], sim)
		}
	}
}

func TestParseEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		want    []float64
		wantOK  bool
	}{
		{name: "valid", raw: []byte("[0.1,0.2,0.3]"), want: []float64{0.1, 0.2, 0.3}, wantOK: true},
		{name: "empty input", raw: nil, wantOK: false},
		{name: "malformed json", raw: []byte("{not json"), wantOK: false},
		{name: "wrong type", raw: []byte(`"hello"`), wantOK: false},
		{name: "empty array", raw: []byte("[]"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseEmbedding(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseEmbedding(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseEmbedding(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("ParseEmbedding(%q)[%d] = %v, want %v", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMarshalEmbeddingRoundTrip(t *testing.T) {
	vec := []float64{0.25, -0.5, 1.0}
	raw := MarshalEmbedding(vec)
	if raw == nil {
		t.Fatal("MarshalEmbedding returned nil for non-empty vector")
	}
	got, ok := ParseEmbedding(raw)
	if !ok {
		t.Fatalf("ParseEmbedding failed on marshaled data %q", raw)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("round trip [%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestSimilarityFromL2(t *testing.T) {
	// 归一化向量：相同向量距离 0 → 相似度 1；正交距离 sqrt(2) → 0.5；相反距离 2 → 0
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1.0},
		{math.Sqrt2, 0.5},
		{2, 0.0},
		{3, 0.0}, // 超出范围截断为 0
	}
	for _, tt := range tests {
		got := SimilarityFromL2(tt.distance)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SimilarityFromL2(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestSimilarityFromCosineDistance(t *testing.T) {
	if got := SimilarityFromCosineDistance(0.3); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("SimilarityFromCosineDistance(0.3) = %v, want 0.7", got)
	}
}
