// Package graphbuild selects the bounded similarity edge set for a
// visualization graph. Policy: top-k-per-node. Each segment keeps its k
// most-similar neighbors above a similarity floor, symmetric pairs are
// deduplicated, and a hard cap bounds the total. Edge count is O(n*k)
// regardless of article length.
package graphbuild

import (
	"math"
	"sort"

	"github.com/resolve-studio/semgraph/internal/domain"
)

// Config holds edge selection parameters. Non-positive counts fall back to
// defaults. MinSimilarity is taken as-is: 0 is a legitimate floor that
// admits every non-negative similarity, the config layer owns the 0.5
// default for unset values.
type Config struct {
	NeighborsPerNode int     // k (default 3)
	MinSimilarity    float64 // similarity floor
	MaxEdges         int     // hard cap (default 200)
}

// Builder computes bounded edge sets from segment embedding vectors.
type Builder struct {
	cfg Config
}

// New creates a Builder, applying defaults for unset count fields.
func New(cfg Config) *Builder {
	if cfg.NeighborsPerNode <= 0 {
		cfg.NeighborsPerNode = 3
	}
	if cfg.MaxEdges <= 0 {
		cfg.MaxEdges = 200
	}
	return &Builder{cfg: cfg}
}

// Build returns the selected edges for the given segment ids and vectors.
// ids[i] corresponds to vectors[i]. No self-loops; a single segment yields
// an empty (never nil) edge list so it serializes as []. The result is
// ordered by descending similarity, ties broken by id pair, so identical
// input gives an identical edge list.
func (b *Builder) Build(ids []string, vectors [][]float32) []domain.Edge {
	n := len(ids)
	if n < 2 {
		return []domain.Edge{}
	}

	type pair struct{ lo, hi int }
	selected := make(map[pair]float64)

	for i := 0; i < n; i++ {
		cands := make([]int, 0, n-1)
		sims := make([]float64, n)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sim := CosineSimilarity(vectors[i], vectors[j])
			if sim < b.cfg.MinSimilarity {
				continue
			}
			sims[j] = sim
			cands = append(cands, j)
		}
		sort.SliceStable(cands, func(a, c int) bool {
			if sims[cands[a]] != sims[cands[c]] {
				return sims[cands[a]] > sims[cands[c]]
			}
			return cands[a] < cands[c]
		})
		if len(cands) > b.cfg.NeighborsPerNode {
			cands = cands[:b.cfg.NeighborsPerNode]
		}
		for _, j := range cands {
			p := pair{lo: min(i, j), hi: max(i, j)}
			selected[p] = sims[j]
		}
	}

	edges := make([]domain.Edge, 0, len(selected))
	for p, sim := range selected {
		src, tgt := ids[p.lo], ids[p.hi]
		if tgt < src {
			src, tgt = tgt, src
		}
		edges = append(edges, domain.Edge{Source: src, Target: tgt, Similarity: sim})
	}

	sort.Slice(edges, func(a, c int) bool {
		if edges[a].Similarity != edges[c].Similarity {
			return edges[a].Similarity > edges[c].Similarity
		}
		if edges[a].Source != edges[c].Source {
			return edges[a].Source < edges[c].Source
		}
		return edges[a].Target < edges[c].Target
	})

	if len(edges) > b.cfg.MaxEdges {
		edges = edges[:b.cfg.MaxEdges]
	}
	return edges
}

// CosineSimilarity computes the cosine similarity between two vectors,
// returning 0 for mismatched or zero-norm input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors a hair past 1.
	return math.Max(-1, math.Min(1, sim))
}
