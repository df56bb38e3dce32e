package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"postgrid/internal/cache"
	"postgrid/internal/catalog"
	"postgrid/internal/comments"
	"postgrid/internal/config"
	"postgrid/internal/models"
	"postgrid/internal/poller"
	"postgrid/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
)

func intPtr(n int) *int { return &n }

func testConfig() *config.Config {
	return &config.Config{
		Port:      8080,
		CacheTTL:  time.Minute,
		EnableWeb: true,
		Grid: config.GridConfig{
			RecentCommentsLimit: 20,
			SkeletonCount:       6,
			FetchTimeout:        time.Second,
			CollationLocale:     "en",
			PageTitle:           "Latest posts",
		},
		Security: config.SecurityConfig{MaxRequestSize: 1 << 20},
	}
}

type testEnv struct {
	server *Server
	store  storage.Storage
	poller *poller.Poller
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cacheManager := cache.NewManager(cfg.CacheTTL)
	local := comments.NewStoreClient(store, cacheManager)
	p := poller.New(cacheManager, store, cfg.Feeds, false, time.Hour)

	server, err := NewServer(Services{
		Posts:    catalog.New(store, cacheManager),
		Comments: local,
		Recent:   local,
		Poller:   p,
	}, cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	return &testEnv{server: server, store: store, poller: p}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	posts := []models.Post{
		{ID: 1, Title: "banana", CreatedAt: "2024-01-01T00:00:00Z", CommentCount: intPtr(5)},
		{ID: 2, Title: "Apple", CreatedAt: "2024-01-03T00:00:00Z", CommentCount: intPtr(1)},
		{ID: 3, Title: "cherry", CreatedAt: "2024-01-02T00:00:00Z"},
	}
	if err := e.store.SavePosts(ctx, posts); err != nil {
		t.Fatalf("Failed to seed posts: %v", err)
	}
	recent := []models.Comment{
		{ID: 10, PostID: 3, CreatedAt: "2024-02-01T00:00:00Z", Author: "Ada"},
		{ID: 11, PostID: 1, CreatedAt: "2024-02-03T00:00:00Z", Author: "Grace"},
	}
	if err := e.store.SaveComments(ctx, recent); err != nil {
		t.Fatalf("Failed to seed comments: %v", err)
	}
}

func (e *testEnv) do(method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, nil)
	e.server.Handler().ServeHTTP(w, req)
	return w
}

type postsResponse struct {
	View   string        `json:"view"`
	Sort   string        `json:"sort"`
	Locale string        `json:"locale"`
	Posts  []models.Post `json:"posts"`
	Count  int           `json:"count"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func postIDs(posts []models.Post) []int64 {
	out := make([]int64, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seed(t)

	w := env.do("GET", "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for health endpoint, got %d", w.Code)
	}

	var body map[string]interface{}
	decode(t, w, &body)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
	if body["posts"] != float64(3) {
		t.Errorf("Expected 3 posts, got %v", body["posts"])
	}
	if body["poller_active"] != false {
		t.Errorf("Expected inactive poller, got %v", body["poller_active"])
	}
}

func TestServer_GetPosts(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seed(t)

	w := env.do("GET", "/api/v1/posts")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body postsResponse
	decode(t, w, &body)
	if diff := cmp.Diff([]int64{2, 3, 1}, postIDs(body.Posts)); diff != "" {
		t.Errorf("Unexpected post order (-want +got):\n%s", diff)
	}
	if body.Count != 3 {
		t.Errorf("Expected count 3, got %d", body.Count)
	}
}

func TestServer_GetPostView(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seed(t)

	tests := []struct {
		query string
		want  []int64
	}{
		{"", []int64{2, 3, 1}},
		{"?sort=oldest", []int64{1, 3, 2}},
		{"?view=popular", []int64{1}},
		{"?view=popular&sort=least_comments", []int64{1}},
		{"?view=recent_posts&sort=most_comments", []int64{1, 2, 3}},
		{"?view=recent_comments", []int64{3, 1}},
		{"?view=recent_comments&sort=most_comments", []int64{1, 3}},
		{"?sort=title_asc", []int64{2, 1, 3}},
		{"?sort=title_desc", []int64{3, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do("GET", "/api/v1/posts/view"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
			}

			var body postsResponse
			decode(t, w, &body)
			if diff := cmp.Diff(tt.want, postIDs(body.Posts)); diff != "" {
				t.Errorf("Unexpected posts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServer_GetPostView_Invalid(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for _, target := range []string{"/api/v1/posts/view?view=trending", "/api/v1/posts/view?sort=shuffle"} {
		if w := env.do("GET", target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", target, w.Code)
		}
	}
}

type failingFetcher struct{}

func (failingFetcher) GetRecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	return nil, errors.New("comments service unavailable")
}

func TestServer_GetPostView_FetchFailureIsEmpty(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seed(t)
	env.server.services.Comments = failingFetcher{}

	w := env.do("GET", "/api/v1/posts/view?view=recent_comments")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body postsResponse
	decode(t, w, &body)
	if body.Count != 0 || body.Posts == nil {
		t.Errorf("Expected empty non-nil post list, got %+v", body)
	}
}

func TestServer_GetRecentComments(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seed(t)

	w := env.do("GET", "/api/v1/comments/recent?limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body comments.RecentResponse
	decode(t, w, &body)
	if body.Count != 1 || body.Comments[0].ID != 11 {
		t.Errorf("Expected newest comment 11, got %+v", body)
	}

	w = env.do("GET", "/api/v1/comments/recent")
	decode(t, w, &body)
	if body.Count != 2 {
		t.Errorf("Expected default limit to return both comments, got %d", body.Count)
	}

	for _, limit := range []string{"0", "101", "ten"} {
		if w := env.do("GET", "/api/v1/comments/recent?limit="+limit); w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected status 400, got %d", limit, w.Code)
		}
	}
}

func TestServer_HTTPClientRoundTrip(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seed(t)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	client := comments.NewHTTPClient(ts.URL, time.Second)
	got, err := client.GetRecentComments(context.Background(), 20)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 2 || got[0].Author != "Grace" {
		t.Errorf("Unexpected comments over HTTP: %+v", got)
	}
}

func TestServer_Stats(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seed(t)

	w := env.do("GET", "/api/v1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats models.Stats
	decode(t, w, &stats)
	if stats.PostCount != 3 || stats.CommentCount != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestServer_Poller(t *testing.T) {
	cfg := testConfig()
	cfg.Feeds = []string{"http://127.0.0.1:1/feed"}
	env := newTestEnv(t, cfg)

	w := env.do("GET", "/api/v1/poller/status")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var status map[string]interface{}
	decode(t, w, &status)
	if status["is_polling"] != false || status["status"] != "idle" {
		t.Errorf("Unexpected poller status: %v", status)
	}

	if w := env.do("POST", "/api/v1/poller/force-poll?feed=http%3A%2F%2Fother.example%2Ffeed"); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown feed, got %d", w.Code)
	}

	if w := env.do("POST", "/api/v1/poller/force-poll?feed=http%3A%2F%2F127.0.0.1%3A1%2Ffeed"); w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502 for unreachable feed, got %d", w.Code)
	}

	if w := env.do("POST", "/api/v1/poller/force-poll?feed=ftp%3A%2F%2Fx"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid feed URL, got %d", w.Code)
	}
}

func TestServer_WebAndSwaggerToggles(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, cfg)
	env.seed(t)

	w := env.do("GET", "/")
	if w.Code != http.StatusOK {
		t.Errorf("Expected grid page, got %d", w.Code)
	}
	if w := env.do("GET", "/swagger/index.html"); w.Code != http.StatusNotFound {
		t.Errorf("Expected swagger disabled, got %d", w.Code)
	}

	cfg = testConfig()
	cfg.EnableWeb = false
	cfg.EnableSwagger = true
	env = newTestEnv(t, cfg)

	if w := env.do("GET", "/"); w.Code != http.StatusNotFound {
		t.Errorf("Expected grid page disabled, got %d", w.Code)
	}
	if w := env.do("GET", "/swagger/index.html"); w.Code != http.StatusOK {
		t.Errorf("Expected swagger UI, got %d", w.Code)
	}
}

func TestServer_StartWithContext(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 0
	env := newTestEnv(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.server.StartWithContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}
