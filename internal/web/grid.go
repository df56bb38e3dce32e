package web

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"time"

	"postgrid/internal/config"
	"postgrid/internal/grid"
	"postgrid/internal/locale"
	"postgrid/internal/models"
	"postgrid/internal/render"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// PostLister supplies the posts shown in the grid
type PostLister interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
}

// GridServer renders the post grid page
type GridServer struct {
	enabled bool
	posts   PostLister
	fetcher grid.CommentFetcher
	cfg     config.GridConfig
	shell   *render.Shell
	assets  *Assets
}

func NewGridServer(enabled bool, posts PostLister, fetcher grid.CommentFetcher, cfg config.GridConfig) (*GridServer, error) {
	s := &GridServer{enabled: enabled, posts: posts, fetcher: fetcher, cfg: cfg}
	if !enabled {
		return s, nil
	}

	shell, err := render.NewShell(
		render.WithSkeletonCount(cfg.SkeletonCount),
		render.WithEmptyMessage(cfg.EmptyMessage),
		render.WithMinify(cfg.MinifyHTML),
	)
	if err != nil {
		return nil, err
	}
	assets, err := LoadAssets(cfg.MinifyHTML)
	if err != nil {
		return nil, err
	}

	s.shell = shell
	s.assets = assets
	log.Println("Grid web interface enabled")
	return s, nil
}

// RegisterRoutes registers the grid page and its static assets
func (s *GridServer) RegisterRoutes(router *gin.Engine) {
	if !s.enabled {
		log.Println("Grid web interface is disabled")
		return
	}

	router.GET("/", s.serveGrid)
	router.GET("/static/:file", s.assets.serve)
}

func (s *GridServer) serveGrid(c *gin.Context) {
	view, err := models.ParseViewMode(c.Query("view"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sortMode, err := models.ParseSortMode(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, tag := BuildSnapshot(c.Request.Context(), s.posts, s.fetcher, s.cfg, view, sortMode)

	var buf bytes.Buffer
	if err := s.shell.RenderPage(&buf, s.cfg.PageTitle, tag.String(), snap); err != nil {
		log.Printf("Error rendering grid: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
		return
	}

	status := http.StatusOK
	if snap.Loading {
		status = http.StatusServiceUnavailable
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// BuildSnapshot mounts a grid session for one page render: it loads the
// posts, applies the sort and view, and waits up to cfg.FetchTimeout for
// the recent comments. The session is unmounted before returning without
// waiting on the fetch, so a fetcher that ignores ctx cannot hold the
// request and its late result never reaches the snapshot.
func BuildSnapshot(ctx context.Context, posts PostLister, fetcher grid.CommentFetcher, cfg config.GridConfig, view models.ViewMode, sortMode models.SortMode) (grid.Snapshot, language.Tag) {
	list, err := posts.ListPosts(ctx)
	loading := err != nil
	if err != nil {
		log.Printf("Warning: failed to load posts: %v", err)
	}

	tag := locale.Resolve(cfg.CollationLocale, list)

	opts := []grid.SessionOption{grid.WithLocale(tag)}
	if cfg.RecentCommentsLimit > 0 {
		opts = append(opts, grid.WithRecentCommentsLimit(cfg.RecentCommentsLimit))
	}
	session := grid.NewSession(fetcher, opts...)
	defer session.Unmount()

	session.SetPosts(list, loading)
	session.SetSort(sortMode)
	done := session.SetView(view)

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		log.Printf("Warning: recent comments not ready after %v", timeout)
	case <-ctx.Done():
	}

	return session.Snapshot(), tag
}
