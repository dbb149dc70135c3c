// Package article handles article content writes and reads. A save computes
// the content version from the body, so identical bodies always carry the
// same version and unchanged content never triggers recomputation downstream.
package article

import (
	"context"
	"fmt"
	"time"

	"github.com/resolve-studio/semgraph/internal/domain"
)

var validBlockTypes = map[domain.BlockType]bool{
	domain.BlockParagraph: true,
	domain.BlockHeading:   true,
	domain.BlockQuote:     true,
	domain.BlockList:      true,
	domain.BlockCode:      true,
}

// Service handles article CRUD with content versioning.
type Service struct {
	repo  Repository
	cache CacheInvalidator
	now   func() time.Time
}

// New creates an article service. cache may be nil.
func New(repo Repository, cache CacheInvalidator) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Save validates and stores an article body, assigning the content version.
// An empty body is valid content; it yields an empty graph on read.
func (s *Service) Save(ctx context.Context, id string, body []domain.Block) (domain.Article, error) {
	if id == "" {
		return domain.Article{}, fmt.Errorf("empty article id: %w", domain.ErrInvalidContent)
	}
	for i, b := range body {
		if !validBlockTypes[b.Type] {
			return domain.Article{}, fmt.Errorf(
				"block %d has unknown type %q: %w", i, b.Type, domain.ErrInvalidContent,
			)
		}
	}

	art := domain.Article{
		ID:        id,
		Version:   domain.Fingerprint(body),
		Body:      body,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, art); err != nil {
		return domain.Article{}, fmt.Errorf("save article: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(id)
	}
	return art, nil
}

// Get retrieves an article by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Article, error) {
	art, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article: %w", err)
	}
	return art, nil
}

// Delete removes an article and its memoized graph.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
	return nil
}
