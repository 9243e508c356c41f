package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"poojaconstructions/api/internal/admins"
	"poojaconstructions/api/internal/config"
	"poojaconstructions/api/internal/docstore"
	"poojaconstructions/api/internal/search"
	"poojaconstructions/api/internal/session"
)

// fakeBackend is an in-memory docstore backend.
type fakeBackend struct {
	mu       sync.Mutex
	docs     map[string][]byte
	fetchErr error
	storeErr error
	pingErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{docs: make(map[string][]byte)}
}

func (b *fakeBackend) Fetch(_ context.Context, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	data, ok := b.docs[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return data, nil
}

func (b *fakeBackend) Store(_ context.Context, id string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.storeErr != nil {
		return b.storeErr
	}
	b.docs[id] = data
	return nil
}

func (b *fakeBackend) Create(_ context.Context, id string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[id]; !ok {
		b.docs[id] = data
	}
	return nil
}

func (b *fakeBackend) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pingErr
}

func (b *fakeBackend) seed(t *testing.T, id string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	b.mu.Lock()
	b.docs[id] = data
	b.mu.Unlock()
}

func testConfig() config.Config {
	return config.Config{
		Addr:       ":0",
		CORSOrigin: "*",
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		CacheTTL:   5 * time.Minute,
		DocumentIDs: config.DocumentIDs{
			Projects:   "projects.json",
			Services:   "services.json",
			Bitumen:    "bitumen.json",
			Team:       "team.json",
			Activities: "activities.json",
			Admins:     "admins.json",
		},
		SeedAdmins: true,
	}
}

type testEnv struct {
	handler http.Handler
	service *Service
	backend *fakeBackend
	cache   *docstore.Cache
}

// seed replaces a collection document behind the cache's back and drops the
// cached entry so the next read hits the backend.
func (e *testEnv) seed(t *testing.T, key string, v any) {
	t.Helper()
	e.backend.seed(t, key+".json", v)
	e.cache.Drop(key)
}

func (e *testEnv) dropCaches() {
	for _, key := range []string{"projects", "services", "bitumen", "team", "activities", "admins"} {
		e.cache.Drop(key)
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	backend := newFakeBackend()
	cache := docstore.NewCache(cfg.CacheTTL)
	cols := NewCollections(backend, cache, cfg.DocumentIDs)

	adminCol := docstore.NewCollection[admins.Admin](backend, cache, cfg.DocumentIDs.Admins, "admins")
	adminSvc := admins.NewService(adminCol)

	searchSvc := search.NewService(nil, search.NewScanner(cols))

	svc := New(cfg, backend, cols, adminSvc, session.NewMemoryStore(), searchSvc, nil, nil)
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	return &testEnv{
		handler: NewHTTPServer(svc, cfg.CORSOrigin).Handler(),
		service: svc,
		backend: backend,
		cache:   cache,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, userID, password string) map[string]any {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/session/login", "", map[string]string{
		"userId":   userID,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", userID, w.Code, w.Body.String())
	}
	return decodeMap(t, w)
}

func (e *testEnv) token(t *testing.T, userID, password string) string {
	t.Helper()
	payload := e.login(t, userID, password)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("login %s: no token in %v", userID, payload)
	}
	return token
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return payload
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var payload []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return payload
}
