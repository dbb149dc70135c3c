// Package projection lays out an article's embedding vectors in 2-D display
// space. The layout is fit jointly over the full segment set: a cosine
// nearest-neighbor graph drives an attraction/repulsion refinement starting
// from a PCA initialization, so nearby vectors end up as nearby points. All
// randomness comes from a caller-provided seed, making coordinates
// bit-for-bit reproducible for an unchanged content version.
package projection

import (
	"math"
	"math/rand"
)

// Layouts for fewer than minReducible points skip the neighbor-graph
// refinement entirely; the neighbor structure is ill-conditioned below it.
const minReducible = 4

const (
	powerIterations = 64
	initialStep     = 0.1
	negativeSamples = 3
	repulseRadius   = 1.0
	repulseWeight   = 0.5
	eps             = 1e-9
)

// Config holds layout parameters. Zero values fall back to defaults.
type Config struct {
	Neighbors  int     // nearest neighbors per point (default 15)
	MinDist    float64 // attraction dead zone in layout space (default 0.1)
	Iterations int     // refinement passes (default 300)
}

// Point is one segment in display space. X and Y are min-max normalized per
// article; Z is the vector's normalized distance from the article's
// embedding centroid.
type Point struct {
	X, Y, Z float64
}

// Projector reduces embedding vectors to display points.
type Projector struct {
	cfg Config
}

// New creates a Projector, applying defaults for unset config fields.
func New(cfg Config) *Projector {
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = 15
	}
	if cfg.MinDist <= 0 {
		cfg.MinDist = 0.1
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 300
	}
	return &Projector{cfg: cfg}
}

// Project lays out vectors in 2-D. The seed fixes every random choice, so
// identical input and seed give identical output.
func (p *Projector) Project(vectors [][]float32, seed int64) []Point {
	n := len(vectors)
	switch {
	case n == 0:
		return nil
	case n == 1:
		return []Point{{X: 0.5, Y: 0.5, Z: 0.5}}
	}

	var coords [][2]float64
	if n < minReducible {
		coords = circleLayout(n)
	} else {
		coords = p.layout(vectors, seed)
	}

	normalizeAxis(coords, 0)
	normalizeAxis(coords, 1)

	z := centroidDistances(vectors)
	normalizeValues(z)

	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: coords[i][0], Y: coords[i][1], Z: z[i]}
	}
	return points
}

// layout runs the full reduction: unit-normalize, build the kNN graph,
// initialize from PCA, refine with seeded attraction/negative sampling.
func (p *Projector) layout(vectors [][]float32, seed int64) [][2]float64 {
	rng := rand.New(rand.NewSource(seed))

	unit := unitRows(vectors)
	k := min(p.cfg.Neighbors, len(unit)-1)
	nbrs := nearestNeighbors(unit, k)

	coords := pcaInit(unit, rng)
	p.refine(coords, nbrs, rng)
	return coords
}

// refine pulls neighbor pairs together outside the MinDist dead zone and
// pushes sampled non-neighbors apart, with a linearly decaying step.
func (p *Projector) refine(coords [][2]float64, nbrs [][]int, rng *rand.Rand) {
	n := len(coords)
	for iter := 0; iter < p.cfg.Iterations; iter++ {
		step := initialStep * (1 - float64(iter)/float64(p.cfg.Iterations))

		for i := 0; i < n; i++ {
			for _, j := range nbrs[i] {
				dx := coords[j][0] - coords[i][0]
				dy := coords[j][1] - coords[i][1]
				d := math.Hypot(dx, dy)
				if d <= p.cfg.MinDist {
					continue
				}
				f := step * (d - p.cfg.MinDist) / (d + eps)
				coords[i][0] += f * dx
				coords[i][1] += f * dy
				coords[j][0] -= f * dx
				coords[j][1] -= f * dy
			}

			for s := 0; s < negativeSamples; s++ {
				j := rng.Intn(n)
				if j == i {
					continue
				}
				dx := coords[j][0] - coords[i][0]
				dy := coords[j][1] - coords[i][1]
				d := math.Hypot(dx, dy)
				if d >= repulseRadius {
					continue
				}
				f := step * repulseWeight * (repulseRadius - d) / (d + eps)
				coords[i][0] -= f * dx
				coords[i][1] -= f * dy
			}
		}
	}
}

// circleLayout places n points evenly on a circle, starting at the top.
// Deterministic fallback for point sets too small to reduce.
func circleLayout(n int) [][2]float64 {
	coords := make([][2]float64, n)
	for i := range coords {
		theta := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		coords[i] = [2]float64{0.5 + 0.5*math.Cos(theta), 0.5 + 0.5*math.Sin(theta)}
	}
	return coords
}

// centroidDistances returns each vector's Euclidean distance from the mean
// vector of the set.
func centroidDistances(vectors [][]float32) []float64 {
	n := len(vectors)
	dim := len(vectors[0])

	centroid := make([]float64, dim)
	for _, v := range vectors {
		for d, x := range v {
			centroid[d] += float64(x)
		}
	}
	for d := range centroid {
		centroid[d] /= float64(n)
	}

	dists := make([]float64, n)
	for i, v := range vectors {
		var sum float64
		for d, x := range v {
			diff := float64(x) - centroid[d]
			sum += diff * diff
		}
		dists[i] = math.Sqrt(sum)
	}
	return dists
}

// normalizeAxis min-max rescales one coordinate axis to [0,1] in place.
// A zero range maps every value to 0.
func normalizeAxis(coords [][2]float64, axis int) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range coords {
		lo = math.Min(lo, c[axis])
		hi = math.Max(hi, c[axis])
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i := range coords {
		coords[i][axis] = (coords[i][axis] - lo) / span
	}
}

// normalizeValues min-max rescales a value slice to [0,1] in place.
func normalizeValues(vals []float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i := range vals {
		vals[i] = (vals[i] - lo) / span
	}
}

// unitRows converts vectors to unit-length float64 rows. Zero vectors stay
// zero.
func unitRows(vectors [][]float32) [][]float64 {
	rows := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v))
		var norm float64
		for d, x := range v {
			row[d] = float64(x)
			norm += row[d] * row[d]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for d := range row {
				row[d] /= norm
			}
		}
		rows[i] = row
	}
	return rows
}
