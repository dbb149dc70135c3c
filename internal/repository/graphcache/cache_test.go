package graphcache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/resolve-studio/semgraph/internal/db/memory"
	"github.com/resolve-studio/semgraph/internal/domain"
)

func testGraph(id string) domain.Graph {
	return domain.Graph{
		Nodes: []domain.Node{{ID: id, X: 0.5, Y: 0.5, Z: 0.5, Text: "hello"}},
	}
}

func TestGetOrCompute_ComputesOnce(t *testing.T) {
	cache := New(nil, 0, nil, zap.NewNop())

	var calls atomic.Int32
	compute := func(ctx context.Context) (domain.Graph, error) {
		calls.Add(1)
		return testGraph("s1"), nil
	}

	for i := 0; i < 3; i++ {
		g, err := cache.GetOrCompute(context.Background(), "a1", "v1", compute)
		if err != nil {
			t.Fatalf("GetOrCompute failed: %v", err)
		}
		if len(g.Nodes) != 1 || g.Nodes[0].ID != "s1" {
			t.Errorf("Unexpected graph: %+v", g)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 compute call, got %d", got)
	}
}

func TestGetOrCompute_ConcurrentCallersShareOneFlight(t *testing.T) {
	cache := New(nil, 0, nil, zap.NewNop())

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (domain.Graph, error) {
		calls.Add(1)
		<-release
		return testGraph("s1"), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.GetOrCompute(context.Background(), "a1", "v1", compute)
		}(i)
	}

	// Give the goroutines time to pile onto the flight, then let it finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Caller %d failed: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 compute call across %d callers, got %d", callers, got)
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	cache := New(nil, 0, nil, zap.NewNop())

	var calls atomic.Int32
	compute := func(ctx context.Context) (domain.Graph, error) {
		if calls.Add(1) == 1 {
			return domain.Graph{}, errors.New("model down")
		}
		return testGraph("s1"), nil
	}

	if _, err := cache.GetOrCompute(context.Background(), "a1", "v1", compute); err == nil {
		t.Fatal("Expected first call to fail")
	}

	g, err := cache.GetOrCompute(context.Background(), "a1", "v1", compute)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Errorf("Unexpected graph: %+v", g)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Expected 2 compute calls, got %d", got)
	}
}

func TestGetOrCompute_SurvivesCallerCancellation(t *testing.T) {
	cache := New(nil, 0, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	compute := func(ctx context.Context) (domain.Graph, error) {
		if err := ctx.Err(); err != nil {
			return domain.Graph{}, err
		}
		return testGraph("s1"), nil
	}

	g, err := cache.GetOrCompute(ctx, "a1", "v1", compute)
	if err != nil {
		t.Fatalf("Expected compute to run detached from cancellation, got: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Errorf("Unexpected graph: %+v", g)
	}
}

func TestGetOrCompute_NewVersionRecomputes(t *testing.T) {
	cache := New(nil, 0, nil, zap.NewNop())

	var calls atomic.Int32
	compute := func(ctx context.Context) (domain.Graph, error) {
		calls.Add(1)
		return testGraph("s1"), nil
	}

	if _, err := cache.GetOrCompute(context.Background(), "a1", "v1", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if _, err := cache.GetOrCompute(context.Background(), "a1", "v2", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("Expected 2 compute calls for 2 versions, got %d", got)
	}
}

func TestGetOrCompute_PersistsAndReloads(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	first := New(store, time.Hour, nil, zap.NewNop())

	var calls atomic.Int32
	compute := func(ctx context.Context) (domain.Graph, error) {
		calls.Add(1)
		return testGraph("s1"), nil
	}

	if _, err := first.GetOrCompute(context.Background(), "a1", "v1", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	// A fresh cache (new process) finds the persisted artifact.
	second := New(store, time.Hour, nil, zap.NewNop())
	g, err := second.GetOrCompute(context.Background(), "a1", "v1", compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "s1" {
		t.Errorf("Unexpected reloaded graph: %+v", g)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected persisted graph to skip compute, got %d calls", got)
	}
}

func TestGetOrCompute_CorruptStoreEntryRecomputes(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	key := graphKey("a1", "v1")
	if err := store.Set(context.Background(), key, []byte("{not json")); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	cache := New(store, 0, nil, zap.NewNop())

	var calls atomic.Int32
	compute := func(ctx context.Context) (domain.Graph, error) {
		calls.Add(1)
		return testGraph("s1"), nil
	}

	g, err := cache.GetOrCompute(context.Background(), "a1", "v1", compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Errorf("Unexpected graph: %+v", g)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected compute to run past corrupt entry, got %d calls", got)
	}

	// The corrupt entry gets overwritten with a valid artifact.
	data, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	var stored domain.Graph
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Errorf("Persisted graph is not valid JSON: %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	cache := New(nil, 0, nil, zap.NewNop())

	var calls atomic.Int32
	compute := func(ctx context.Context) (domain.Graph, error) {
		calls.Add(1)
		return testGraph("s1"), nil
	}

	if _, err := cache.GetOrCompute(context.Background(), "a1", "v1", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	cache.Invalidate("a1")

	if _, err := cache.GetOrCompute(context.Background(), "a1", "v1", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Expected recompute after invalidation, got %d calls", got)
	}
}
