package graphbuild

import (
	"math"
	"testing"
)

func TestBuild_SingleSegmentNoEdges(t *testing.T) {
	b := New(Config{})
	got := b.Build([]string{"s1"}, [][]float32{{1, 0}})
	if got == nil {
		t.Fatal("expected empty non-nil edge list for one segment")
	}
	if len(got) != 0 {
		t.Fatalf("expected no edges for one segment, got %v", got)
	}
}

func TestBuild_NoSelfLoops(t *testing.T) {
	b := New(Config{MinSimilarity: 0.1})
	ids := []string{"s1", "s2", "s3"}
	vectors := [][]float32{{1, 0}, {0.9, 0.1}, {0.8, 0.2}}

	for _, e := range b.Build(ids, vectors) {
		if e.Source == e.Target {
			t.Fatalf("self-loop edge: %+v", e)
		}
	}
}

func TestBuild_SymmetricPairsDeduplicated(t *testing.T) {
	b := New(Config{MinSimilarity: 0.1, NeighborsPerNode: 5})
	ids := []string{"s1", "s2"}
	vectors := [][]float32{{1, 0}, {1, 0.01}}

	edges := b.Build(ids, vectors)
	if len(edges) != 1 {
		t.Fatalf("expected 1 deduplicated edge, got %d", len(edges))
	}
	if edges[0].Source != "s1" || edges[0].Target != "s2" {
		t.Fatalf("unexpected pair ordering: %+v", edges[0])
	}
}

func TestBuild_SimilarityFloor(t *testing.T) {
	b := New(Config{MinSimilarity: 0.5})
	ids := []string{"s1", "s2"}
	// Orthogonal vectors: similarity 0, below the floor.
	vectors := [][]float32{{1, 0}, {0, 1}}

	if got := b.Build(ids, vectors); len(got) != 0 {
		t.Fatalf("expected no edges below the floor, got %v", got)
	}
}

func TestBuild_ZeroFloorAdmitsZeroSimilarity(t *testing.T) {
	b := New(Config{MinSimilarity: 0})
	ids := []string{"s1", "s2"}
	// Orthogonal vectors: similarity exactly 0, on the floor.
	vectors := [][]float32{{1, 0}, {0, 1}}

	edges := b.Build(ids, vectors)
	if len(edges) != 1 {
		t.Fatalf("expected a floor of 0 to admit the orthogonal pair, got %v", edges)
	}
	if edges[0].Similarity != 0 {
		t.Fatalf("expected similarity 0, got %v", edges[0].Similarity)
	}
}

func TestBuild_TopKBound(t *testing.T) {
	// Ten near-identical vectors; every pair clears the floor.
	n := 10
	k := 2
	ids := make([]string, n)
	vectors := make([][]float32, n)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		vectors[i] = []float32{1, float32(i) * 0.001}
	}

	b := New(Config{NeighborsPerNode: k, MinSimilarity: 0.5, MaxEdges: 1000})
	edges := b.Build(ids, vectors)

	if len(edges) == 0 || len(edges) > n*k {
		t.Fatalf("edge count %d violates O(n*k) bound %d", len(edges), n*k)
	}
}

func TestBuild_MaxEdgesCap(t *testing.T) {
	n := 10
	ids := make([]string, n)
	vectors := make([][]float32, n)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		vectors[i] = []float32{1, float32(i) * 0.001}
	}

	b := New(Config{NeighborsPerNode: 9, MinSimilarity: 0.5, MaxEdges: 5})
	edges := b.Build(ids, vectors)
	if len(edges) != 5 {
		t.Fatalf("expected cap of 5 edges, got %d", len(edges))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	ids := []string{"s1", "s2", "s3", "s4"}
	vectors := [][]float32{{1, 0}, {0.9, 0.4}, {0.8, 0.6}, {0.7, 0.7}}
	b := New(Config{MinSimilarity: 0.1})

	a := b.Build(ids, vectors)
	c := b.Build(ids, vectors)
	if len(a) != len(c) {
		t.Fatalf("edge counts differ: %d vs %d", len(a), len(c))
	}
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("edge %d differs: %+v vs %+v", i, a[i], c[i])
		}
	}
}

func TestBuild_SimilarityRange(t *testing.T) {
	ids := []string{"s1", "s2", "s3"}
	vectors := [][]float32{{1, 0}, {1, 0}, {-1, 0}}
	b := New(Config{MinSimilarity: -1, NeighborsPerNode: 5})

	for _, e := range b.Build(ids, vectors) {
		if e.Similarity < -1 || e.Similarity > 1 {
			t.Fatalf("similarity out of range: %+v", e)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("identical vectors: got %v, want 1", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: got %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); got != -1 {
		t.Errorf("opposite vectors: got %v, want -1", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: got %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("length mismatch: got %v, want 0", got)
	}

	got := CosineSimilarity([]float32{3, 4}, []float32{4, 3})
	want := 24.0 / 25.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}
