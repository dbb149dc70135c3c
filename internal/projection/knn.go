package projection

import (
	"math"
	"math/rand"
	"sort"
)

// nearestNeighbors returns, for each unit row, the indices of its k most
// cosine-similar rows. Ties break on the lower index so the graph is
// deterministic.
func nearestNeighbors(unit [][]float64, k int) [][]int {
	n := len(unit)
	nbrs := make([][]int, n)

	for i := 0; i < n; i++ {
		order := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				order = append(order, j)
			}
		}
		sims := make([]float64, n)
		for _, j := range order {
			sims[j] = dot(unit[i], unit[j])
		}
		sort.SliceStable(order, func(a, b int) bool {
			if sims[order[a]] != sims[order[b]] {
				return sims[order[a]] > sims[order[b]]
			}
			return order[a] < order[b]
		})
		nbrs[i] = order[:k]
	}
	return nbrs
}

// dot is the inner product of two equal-length rows.
func dot(a, b []float64) float64 {
	var sum float64
	for d := range a {
		sum += a[d] * b[d]
	}
	return sum
}

// pcaInit projects centered rows onto their top two principal components,
// found by seeded power iteration. Gives the refinement a stable, globally
// sensible starting layout instead of a random scatter.
func pcaInit(rows [][]float64, rng *rand.Rand) [][2]float64 {
	n := len(rows)
	dim := len(rows[0])

	mean := make([]float64, dim)
	for _, row := range rows {
		for d, x := range row {
			mean[d] += x
		}
	}
	for d := range mean {
		mean[d] /= float64(n)
	}

	centered := make([][]float64, n)
	for i, row := range rows {
		c := make([]float64, dim)
		for d, x := range row {
			c[d] = x - mean[d]
		}
		centered[i] = c
	}

	first := principalComponent(centered, rng)
	deflate(centered, first)
	second := principalComponent(centered, rng)

	coords := make([][2]float64, n)
	var maxAbs float64
	for i, row := range rows {
		c := make([]float64, dim)
		for d, x := range row {
			c[d] = x - mean[d]
		}
		coords[i] = [2]float64{dot(c, first), dot(c, second)}
		maxAbs = max(maxAbs, math.Abs(coords[i][0]), math.Abs(coords[i][1]))
	}

	// Scale into [-1,1] so the refinement step size is meaningful.
	if maxAbs > 0 {
		for i := range coords {
			coords[i][0] /= maxAbs
			coords[i][1] /= maxAbs
		}
	}
	return coords
}

// principalComponent runs power iteration on the implicit covariance of the
// centered rows, returning a unit direction in feature space.
func principalComponent(centered [][]float64, rng *rand.Rand) []float64 {
	dim := len(centered[0])

	v := make([]float64, dim)
	for d := range v {
		v[d] = rng.NormFloat64()
	}
	normalize(v)

	proj := make([]float64, len(centered))
	next := make([]float64, dim)

	for iter := 0; iter < powerIterations; iter++ {
		for i, row := range centered {
			proj[i] = dot(row, v)
		}
		for d := range next {
			next[d] = 0
		}
		for i, row := range centered {
			for d, x := range row {
				next[d] += proj[i] * x
			}
		}
		normalize(next)
		copy(v, next)
	}
	return v
}

// deflate removes the given direction from every row, so the next power
// iteration converges to an orthogonal component.
func deflate(centered [][]float64, dir []float64) {
	for _, row := range centered {
		p := dot(row, dir)
		for d := range row {
			row[d] -= p * dir[d]
		}
	}
}

func normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		// Degenerate direction; pick a fixed axis.
		v[0] = 1
		return
	}
	norm = 1 / math.Sqrt(norm)
	for d := range v {
		v[d] *= norm
	}
}
