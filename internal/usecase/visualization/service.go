// Package visualization orchestrates the graph pipeline: segment the article
// body, embed the segments, project to display space, extract the hue, and
// select similarity edges. The result is memoized per content version, so
// the pipeline runs once per (article, version) no matter how many readers
// ask for it.
package visualization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resolve-studio/semgraph/internal/domain"
	"github.com/resolve-studio/semgraph/internal/logger"
	"github.com/resolve-studio/semgraph/internal/metrics"
)

// Service computes and serves visualization graphs.
type Service struct {
	articles   ArticleReader
	cache      Cache
	segmenter  Segmenter
	embedder   Embedder
	projector  Projector
	hue        HueExtractor
	edges      EdgeBuilder
	maxTextLen int
}

// New creates a visualization service. maxTextLen caps node text in runes;
// zero or negative disables truncation.
func New(
	articles ArticleReader,
	cache Cache,
	segmenter Segmenter,
	embedder Embedder,
	projector Projector,
	hue HueExtractor,
	edges EdgeBuilder,
	maxTextLen int,
) *Service {
	return &Service{
		articles:   articles,
		cache:      cache,
		segmenter:  segmenter,
		embedder:   embedder,
		projector:  projector,
		hue:        hue,
		edges:      edges,
		maxTextLen: maxTextLen,
	}
}

// GetGraph returns the graph for an article's current content version,
// computing it at most once per version.
func (s *Service) GetGraph(ctx context.Context, articleID string) (domain.Graph, error) {
	art, err := s.articles.Get(ctx, articleID)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("get article: %w", err)
	}

	g, err := s.cache.GetOrCompute(ctx, art.ID, art.Version, func(ctx context.Context) (domain.Graph, error) {
		return s.build(ctx, art)
	})
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return domain.Graph{}, err
		}
		return domain.Graph{}, fmt.Errorf("%w: %s", domain.ErrGraphUnavailable, err)
	}
	return g, nil
}

// build runs the full pipeline for one article snapshot.
func (s *Service) build(ctx context.Context, art domain.Article) (domain.Graph, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	segments := s.segmenter.Segment(art.Body)
	metrics.GraphSegments.Observe(float64(len(segments)))
	if len(segments) == 0 {
		metrics.GraphBuildsTotal.WithLabelValues("success").Inc()
		return domain.EmptyGraph(), nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		metrics.GraphBuildsTotal.WithLabelValues("error").Inc()
		return domain.Graph{}, fmt.Errorf("embed %d segments: %w", len(segments), err)
	}
	if len(res.Embeddings) != len(segments) {
		metrics.GraphBuildsTotal.WithLabelValues("error").Inc()
		return domain.Graph{}, fmt.Errorf(
			"embedding count mismatch: got %d, want %d: %w",
			len(res.Embeddings), len(segments), domain.ErrModelUnavailable,
		)
	}
	for i, emb := range res.Embeddings {
		if len(emb) == 0 {
			metrics.GraphBuildsTotal.WithLabelValues("error").Inc()
			return domain.Graph{}, fmt.Errorf(
				"empty embedding for segment %d: %w", i, domain.ErrModelUnavailable,
			)
		}
	}

	points := s.projector.Project(res.Embeddings, domain.SeedFromVersion(art.Version))

	nodes := make([]domain.Node, len(segments))
	ids := make([]string, len(segments))
	for i, seg := range segments {
		ids[i] = seg.ID
		nodes[i] = domain.Node{
			ID:       seg.ID,
			X:        points[i].X,
			Y:        points[i].Y,
			Z:        points[i].Z,
			Position: seg.Position,
			Text:     truncate(seg.Text, s.maxTextLen),
		}
	}

	hueVal := s.hue.Extract(res.Embeddings)
	g := domain.Graph{
		Nodes: nodes,
		Edges: s.edges.Build(ids, res.Embeddings),
		Hue:   &hueVal,
	}

	metrics.GraphBuildsTotal.WithLabelValues("success").Inc()
	metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())
	log.Debug("Built visualization graph",
		zap.String("article_id", art.ID),
		zap.String("version", art.Version),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.Duration("duration", time.Since(start)),
	)
	return g, nil
}

// truncate cuts text to maxLen runes, appending an ellipsis when it cuts.
func truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
