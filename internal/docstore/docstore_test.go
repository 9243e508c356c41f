package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryBackend struct {
	documents  map[string][]byte
	fetchCount map[string]int
	fetchErr   error
	storeErr   error
	createErr  error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		documents:  make(map[string][]byte),
		fetchCount: make(map[string]int),
	}
}

func (m *memoryBackend) Fetch(_ context.Context, id string) ([]byte, error) {
	m.fetchCount[id]++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	data, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memoryBackend) Store(_ context.Context, id string, data []byte) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.documents[id] = data
	return nil
}

func (m *memoryBackend) Create(_ context.Context, id string, data []byte) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.documents[id] = data
	return nil
}

func (m *memoryBackend) Ping(context.Context) error { return nil }

type record struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func newTestCollection(backend Backend) (*Collection[record], *Cache) {
	cache := NewCache(5 * time.Minute)
	return NewCollection[record](backend, cache, "records.json", "records"), cache
}

func TestGetCachesWithinFreshnessWindow(t *testing.T) {
	backend := newMemoryBackend()
	backend.documents["records.json"] = []byte(`[{"id":1,"title":"one"}]`)
	col, _ := newTestCollection(backend)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := col.Get(ctx)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(items) != 1 || items[0].Title != "one" {
			t.Fatalf("unexpected items: %+v", items)
		}
	}
	if backend.fetchCount["records.json"] != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", backend.fetchCount["records.json"])
	}
}

func TestGetRefetchesAfterExpiry(t *testing.T) {
	backend := newMemoryBackend()
	backend.documents["records.json"] = []byte(`[]`)
	col, cache := newTestCollection(backend)
	ctx := context.Background()

	current := time.Now()
	cache.now = func() time.Time { return current }

	if _, err := col.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	current = current.Add(6 * time.Minute)
	if _, err := col.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if backend.fetchCount["records.json"] != 2 {
		t.Fatalf("expected refetch after expiry, got %d fetches", backend.fetchCount["records.json"])
	}
}

func TestSaveThenGetServesSavedDataWithoutFetch(t *testing.T) {
	backend := newMemoryBackend()
	backend.documents["records.json"] = []byte(`[]`)
	col, _ := newTestCollection(backend)
	ctx := context.Background()

	saved := []record{{ID: 2, Title: "two"}, {ID: 1, Title: "one"}, {ID: 3, Title: "three"}}
	if err := col.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	items, err := col.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i := range saved {
		if items[i] != saved[i] {
			t.Fatalf("order not preserved at %d: got %+v want %+v", i, items[i], saved[i])
		}
	}
	if backend.fetchCount["records.json"] != 0 {
		t.Fatalf("expected no upstream fetch after save, got %d", backend.fetchCount["records.json"])
	}
}

func TestMissingDocumentIsCreatedLazily(t *testing.T) {
	backend := newMemoryBackend()
	col, _ := newTestCollection(backend)
	ctx := context.Background()

	items, err := col.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty collection, got %d items", len(items))
	}
	if string(backend.documents["records.json"]) != "[]" {
		t.Fatalf("expected empty array document, got %q", backend.documents["records.json"])
	}

	// Lazy creation seeds the cache; no further fetch needed.
	if _, err := col.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if backend.fetchCount["records.json"] != 1 {
		t.Fatalf("expected one fetch, got %d", backend.fetchCount["records.json"])
	}
}

func TestCreateFailureStillReturnsEmpty(t *testing.T) {
	backend := newMemoryBackend()
	backend.createErr = errors.New("permission denied")
	col, _ := newTestCollection(backend)

	items, err := col.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty collection, got %d items", len(items))
	}
}

func TestSaveFailureLeavesCacheUntouched(t *testing.T) {
	backend := newMemoryBackend()
	backend.documents["records.json"] = []byte(`[]`)
	col, _ := newTestCollection(backend)
	ctx := context.Background()

	previous := []record{{ID: 1, Title: "kept"}}
	if err := col.Save(ctx, previous); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	backend.storeErr = errors.New("upstream unavailable")
	if err := col.Save(ctx, []record{{ID: 9, Title: "lost"}}); err == nil {
		t.Fatal("expected save error")
	}

	items, err := col.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "kept" {
		t.Fatalf("cache corrupted by failed save: %+v", items)
	}
}

func TestGetReturnsDetachedSlices(t *testing.T) {
	backend := newMemoryBackend()
	backend.documents["records.json"] = []byte(`[{"id":1,"title":"one"}]`)
	col, _ := newTestCollection(backend)
	ctx := context.Background()

	first, err := col.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	first[0].Title = "mutated"

	second, err := col.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second[0].Title != "one" {
		t.Fatalf("caller mutation leaked into cache: %+v", second[0])
	}

	// The slice handed to Save must not stay aliased to the cache either.
	saved := []record{{ID: 2, Title: "two"}}
	if err := col.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	saved[0].Title = "mutated"

	third, err := col.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if third[0].Title != "two" {
		t.Fatalf("post-save mutation leaked into cache: %+v", third[0])
	}
}

func TestFetchErrorPropagates(t *testing.T) {
	backend := newMemoryBackend()
	backend.fetchErr = errors.New("network down")
	col, _ := newTestCollection(backend)

	if _, err := col.Get(context.Background()); err == nil {
		t.Fatal("expected error from failing backend")
	}
}

func TestCorruptDocumentPropagatesDecodeError(t *testing.T) {
	backend := newMemoryBackend()
	backend.documents["records.json"] = []byte(`{"not":"an array"}`)
	col, _ := newTestCollection(backend)

	if _, err := col.Get(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNullDocumentDecodesToEmptySlice(t *testing.T) {
	backend := newMemoryBackend()
	backend.documents["records.json"] = []byte(`null`)
	col, _ := newTestCollection(backend)

	items, err := col.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty slice, got %#v", items)
	}
}
