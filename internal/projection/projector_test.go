package projection

import (
	"math"
	"math/rand"
	"testing"
)

// clusteredVectors builds two tight clusters of unit-ish vectors plus noise,
// deterministic via the given seed.
func clusteredVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		base := 0
		if i >= n/2 {
			base = dim / 2
		}
		for d := range v {
			v[d] = float32(rng.NormFloat64() * 0.05)
		}
		v[base] += 1
		vectors[i] = v
	}
	return vectors
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func TestProject_Empty(t *testing.T) {
	p := New(Config{})
	if got := p.Project(nil, 1); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestProject_SinglePoint(t *testing.T) {
	p := New(Config{})
	got := p.Project([][]float32{{1, 0, 0}}, 1)

	if len(got) != 1 {
		t.Fatalf("expected 1 point, got %d", len(got))
	}
	if got[0] != (Point{X: 0.5, Y: 0.5, Z: 0.5}) {
		t.Fatalf("expected center point, got %+v", got[0])
	}
}

func TestProject_SmallSetFallback(t *testing.T) {
	p := New(Config{})
	for _, n := range []int{2, 3} {
		vectors := clusteredVectors(n, 8, 7)
		got := p.Project(vectors, 42)

		if len(got) != n {
			t.Fatalf("n=%d: expected %d points, got %d", n, n, len(got))
		}
		for i, pt := range got {
			if !inUnitRange(pt.X) || !inUnitRange(pt.Y) || !inUnitRange(pt.Z) {
				t.Errorf("n=%d point %d out of range: %+v", n, i, pt)
			}
		}

		// Fallback must be seed-independent: no reduction runs below the
		// minimum, so any seed gives the same layout.
		other := p.Project(vectors, 43)
		for i := range got {
			if got[i] != other[i] {
				t.Fatalf("n=%d: small-set layout depends on seed", n)
			}
		}
	}
}

func TestProject_Deterministic(t *testing.T) {
	p := New(Config{Iterations: 50})
	vectors := clusteredVectors(12, 16, 3)

	a := p.Project(vectors, 12345)
	b := p.Project(vectors, 12345)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs across runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestProject_RangeAndSpan(t *testing.T) {
	p := New(Config{Iterations: 50})
	vectors := clusteredVectors(10, 16, 9)
	got := p.Project(vectors, 99)

	var minX, maxX, minY, maxY = math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for i, pt := range got {
		if !inUnitRange(pt.X) || !inUnitRange(pt.Y) || !inUnitRange(pt.Z) {
			t.Fatalf("point %d out of [0,1]: %+v", i, pt)
		}
		minX = math.Min(minX, pt.X)
		maxX = math.Max(maxX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}

	// Min-max normalization pins both axes to the full span.
	if minX != 0 || maxX != 1 || minY != 0 || maxY != 1 {
		t.Fatalf("axes not pinned to [0,1]: x=[%v,%v] y=[%v,%v]", minX, maxX, minY, maxY)
	}
}

func TestProject_ClustersStayTogether(t *testing.T) {
	p := New(Config{Neighbors: 4, Iterations: 200})
	vectors := clusteredVectors(16, 16, 5)
	got := p.Project(vectors, 7)

	// Mean intra-cluster distance should be below the distance between the
	// two cluster centers.
	half := len(got) / 2
	cx := func(pts []Point) (float64, float64) {
		var sx, sy float64
		for _, pt := range pts {
			sx += pt.X
			sy += pt.Y
		}
		return sx / float64(len(pts)), sy / float64(len(pts))
	}
	ax, ay := cx(got[:half])
	bx, by := cx(got[half:])
	between := math.Hypot(bx-ax, by-ay)

	var intra float64
	for _, pt := range got[:half] {
		intra += math.Hypot(pt.X-ax, pt.Y-ay)
	}
	for _, pt := range got[half:] {
		intra += math.Hypot(pt.X-bx, pt.Y-by)
	}
	intra /= float64(len(got))

	if intra >= between {
		t.Fatalf("clusters did not separate: intra=%v between=%v", intra, between)
	}
}

func TestCentroidDistances_Normalization(t *testing.T) {
	vectors := [][]float32{
		{0, 0}, {2, 0}, {1, 0},
	}
	dists := centroidDistances(vectors)
	normalizeValues(dists)

	// Centroid is (1,0): the outer points are equally far, the middle one
	// sits on it.
	if dists[0] != 1 || dists[1] != 1 || dists[2] != 0 {
		t.Fatalf("unexpected normalized distances: %v", dists)
	}
}
