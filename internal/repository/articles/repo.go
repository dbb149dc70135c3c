// Package articles persists article content and its content version.
package articles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/resolve-studio/semgraph/internal/db"
	"github.com/resolve-studio/semgraph/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "article:"

// store is the consumer interface for article persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Repo implements usecase/article.Repository.
type Repo struct {
	store store
}

// New creates an article repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save stores an article's content and version.
func (r *Repo) Save(ctx context.Context, article domain.Article) error {
	data, err := json.Marshal(toDTO(article))
	if err != nil {
		return fmt.Errorf("marshal article %s: %w", article.ID, err)
	}
	if err := r.store.Set(ctx, articleKey(article.ID), data); err != nil {
		return fmt.Errorf("set %s: %w", articleKey(article.ID), err)
	}
	return nil
}

// Get returns an article by id.
func (r *Repo) Get(ctx context.Context, id string) (domain.Article, error) {
	raw, err := r.store.Get(ctx, articleKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Article{}, domain.ErrArticleNotFound
		}
		return domain.Article{}, fmt.Errorf("get %s: %w", articleKey(id), err)
	}

	var dto articleDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return domain.Article{}, fmt.Errorf("unmarshal article %s: %w", id, err)
	}
	return dto.toDomain(id), nil
}

// Delete removes an article. Missing articles are not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, articleKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", articleKey(id), err)
	}
	return nil
}

func articleKey(id string) string {
	return keyPrefix + id
}
