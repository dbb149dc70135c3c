package visualization

import (
	"context"

	"github.com/resolve-studio/semgraph/internal/domain"
	"github.com/resolve-studio/semgraph/internal/projection"
	"github.com/resolve-studio/semgraph/internal/repository/graphcache"
)

// ArticleReader loads article content and its content version.
type ArticleReader interface {
	Get(ctx context.Context, id string) (domain.Article, error)
}

// Segmenter splits an article body into embeddable segments.
type Segmenter interface {
	Segment(body []domain.Block) []domain.Segment
}

// Embedder vectorizes segment texts in one batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Projector reduces embedding vectors to display points. Deterministic for a
// fixed (vectors, seed) pair.
type Projector interface {
	Project(vectors [][]float32, seed int64) []projection.Point
}

// HueExtractor derives the article's display hue from segment embeddings.
type HueExtractor interface {
	Extract(vectors [][]float32) float64
}

// EdgeBuilder selects the similarity edges for a graph.
type EdgeBuilder interface {
	Build(ids []string, vectors [][]float32) []domain.Edge
}

// Cache memoizes graphs per (article, version) and collapses concurrent
// computations of one key into a single flight.
type Cache interface {
	GetOrCompute(
		ctx context.Context, articleID, version string, compute graphcache.ComputeFunc,
	) (domain.Graph, error)
}
