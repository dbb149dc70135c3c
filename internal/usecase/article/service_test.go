package article

import (
	"context"
	"errors"
	"testing"

	"github.com/resolve-studio/semgraph/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	saved     *domain.Article
	saveErr   error
	getResult domain.Article
	getErr    error
	deleteErr error
}

func (m *mockRepo) Save(_ context.Context, a domain.Article) error {
	m.saved = &a
	return m.saveErr
}
func (m *mockRepo) Get(_ context.Context, _ string) (domain.Article, error) {
	return m.getResult, m.getErr
}
func (m *mockRepo) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) Invalidate(id string) {
	m.invalidated = append(m.invalidated, id)
}

// --- Save tests ---

func TestSave_AssignsVersionFromBody(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, nil)

	body := []domain.Block{{Type: domain.BlockParagraph, Text: "hello world"}}
	art, err := svc.Save(context.Background(), "a1", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if art.Version != domain.Fingerprint(body) {
		t.Errorf("Version = %q, want content fingerprint", art.Version)
	}
	if art.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
	if repo.saved == nil || repo.saved.Version != art.Version {
		t.Errorf("Persisted article mismatch: %+v", repo.saved)
	}
}

func TestSave_SameBodySameVersion(t *testing.T) {
	svc := New(&mockRepo{}, nil)
	body := []domain.Block{{Type: domain.BlockParagraph, Text: "stable"}}

	a, err := svc.Save(context.Background(), "a1", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := svc.Save(context.Background(), "a1", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Version != b.Version {
		t.Errorf("Versions differ for identical bodies: %q vs %q", a.Version, b.Version)
	}
}

func TestSave_ChangedBodyChangesVersion(t *testing.T) {
	svc := New(&mockRepo{}, nil)

	a, err := svc.Save(context.Background(), "a1", []domain.Block{
		{Type: domain.BlockParagraph, Text: "first"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := svc.Save(context.Background(), "a1", []domain.Block{
		{Type: domain.BlockParagraph, Text: "second"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Version == b.Version {
		t.Error("Version unchanged after body change")
	}
}

func TestSave_EmptyBodyIsValid(t *testing.T) {
	svc := New(&mockRepo{}, nil)

	art, err := svc.Save(context.Background(), "a1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Version == "" {
		t.Error("Empty body should still get a version")
	}
}

func TestSave_EmptyIDRejected(t *testing.T) {
	svc := New(&mockRepo{}, nil)

	_, err := svc.Save(context.Background(), "", nil)
	if !errors.Is(err, domain.ErrInvalidContent) {
		t.Errorf("Expected ErrInvalidContent, got: %v", err)
	}
}

func TestSave_UnknownBlockTypeRejected(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, nil)

	_, err := svc.Save(context.Background(), "a1", []domain.Block{
		{Type: "table", Text: "x"},
	})
	if !errors.Is(err, domain.ErrInvalidContent) {
		t.Errorf("Expected ErrInvalidContent, got: %v", err)
	}
	if repo.saved != nil {
		t.Error("Invalid body must not be persisted")
	}
}

func TestSave_InvalidatesMemoizedGraph(t *testing.T) {
	inv := &mockInvalidator{}
	svc := New(&mockRepo{}, inv)

	if _, err := svc.Save(context.Background(), "a1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.invalidated) != 1 || inv.invalidated[0] != "a1" {
		t.Errorf("Expected invalidation of a1, got: %v", inv.invalidated)
	}
}

func TestSave_RepoError(t *testing.T) {
	inv := &mockInvalidator{}
	svc := New(&mockRepo{saveErr: errors.New("store down")}, inv)

	if _, err := svc.Save(context.Background(), "a1", nil); err == nil {
		t.Fatal("Expected error from failing repo")
	}
	if len(inv.invalidated) != 0 {
		t.Error("Failed save must not invalidate the cache")
	}
}

// --- Get / Delete tests ---

func TestGet_Success(t *testing.T) {
	want := domain.Article{ID: "a1", Version: "v1"}
	svc := New(&mockRepo{getResult: want}, nil)

	got, err := svc.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != want.ID || got.Version != want.Version {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := New(&mockRepo{getErr: domain.ErrArticleNotFound}, nil)

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrArticleNotFound) {
		t.Errorf("Expected ErrArticleNotFound, got: %v", err)
	}
}

func TestDelete_InvalidatesMemoizedGraph(t *testing.T) {
	inv := &mockInvalidator{}
	svc := New(&mockRepo{}, inv)

	if err := svc.Delete(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.invalidated) != 1 {
		t.Errorf("Expected invalidation, got: %v", inv.invalidated)
	}
}
