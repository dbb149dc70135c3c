package article

import (
	"context"

	"github.com/resolve-studio/semgraph/internal/domain"
)

// Repository defines the storage contract for articles.
type Repository interface {
	Save(ctx context.Context, article domain.Article) error
	Get(ctx context.Context, id string) (domain.Article, error)
	Delete(ctx context.Context, id string) error
}

// CacheInvalidator drops memoized graph artifacts when content changes.
type CacheInvalidator interface {
	Invalidate(articleID string)
}
