package domain

import "errors"

var (
	// ErrArticleNotFound signals an unknown article id.
	ErrArticleNotFound = errors.New("article not found")
	// ErrModelUnavailable signals that the embedding backend is down or
	// returned an unusable response. Computations that fail with it are
	// never cached; a later call retries.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrGraphUnavailable signals that a graph computation failed and no
	// artifact exists for the requested (article, version) key.
	ErrGraphUnavailable = errors.New("graph unavailable")
	// ErrInvalidContent signals a malformed article body.
	ErrInvalidContent = errors.New("invalid article content")
)
