package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"postgrid/internal/config"
	"postgrid/internal/grid"
	"postgrid/internal/locale"
	"postgrid/internal/models"
	"postgrid/internal/poller"
	"postgrid/internal/security"
	"postgrid/internal/web"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// PostService lists posts and reports storage statistics
type PostService interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}

// Services are the collaborators the HTTP layer depends on
type Services struct {
	Posts PostService
	// Comments feeds the recent_comments view, locally or from a remote API
	Comments grid.CommentFetcher
	// Recent backs the recent comments endpoint and always reads local storage
	Recent grid.CommentFetcher
	Poller *poller.Poller
}

type Server struct {
	router        *gin.Engine
	services      Services
	cfg           *config.Config
	gridServer    *web.GridServer
	swaggerServer *web.SwaggerServer
}

func NewServer(services Services, cfg *config.Config) (*Server, error) {
	router := gin.New()
	router.Use(gin.Recovery())

	security.SetupSecurityMiddleware(router, &cfg.Security)

	gridServer, err := web.NewGridServer(cfg.EnableWeb, services.Posts, services.Comments, cfg.Grid)
	if err != nil {
		return nil, err
	}

	server := &Server{
		router:        router,
		services:      services,
		cfg:           cfg,
		gridServer:    gridServer,
		swaggerServer: web.NewSwaggerServer(cfg.EnableSwagger),
	}

	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	{
		api.GET("/posts", s.getPosts)
		api.GET("/posts/view", s.getPostView)
		api.GET("/comments/recent", s.getRecentComments)
		api.GET("/stats", s.getStats)

		// Poller control endpoints
		api.GET("/poller/status", s.getPollerStatus)
		api.POST("/poller/force-poll", s.forcePoll)
	}

	s.gridServer.RegisterRoutes(s.router)
	s.swaggerServer.RegisterRoutes(s.router)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartWithContext serves until ctx is cancelled, then shuts down gracefully
func (s *Server) StartWithContext(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	stats, err := s.services.Posts.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":        "unhealthy",
			"service":       "postgrid",
			"error":         err.Error(),
			"poller_active": s.pollerActive(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "postgrid",
		"poller_active": s.pollerActive(),
		"posts":         stats.PostCount,
		"comments":      stats.CommentCount,
	})
}

func (s *Server) pollerActive() bool {
	return s.services.Poller != nil && s.services.Poller.IsPolling()
}

func (s *Server) getPosts(c *gin.Context) {
	posts, err := s.services.Posts.ListPosts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}

func (s *Server) getPostView(c *gin.Context) {
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

	ctx := c.Request.Context()
	posts, err := s.services.Posts.ListPosts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var recent []models.Comment
	if view == models.ViewRecentComments {
		recent = s.fetchRecent(ctx)
	}

	tag := locale.Resolve(s.cfg.Grid.CollationLocale, posts)
	derived := grid.DeriveLocale(tag, posts, view, sortMode, recent)
	if derived == nil {
		derived = []models.Post{}
	}

	c.JSON(http.StatusOK, gin.H{
		"view":   view,
		"sort":   sortMode,
		"locale": tag.String(),
		"posts":  derived,
		"count":  len(derived),
	})
}

// fetchRecent loads recent comments for the view, treating failure as no comments
func (s *Server) fetchRecent(ctx context.Context) []models.Comment {
	if s.services.Comments == nil {
		return []models.Comment{}
	}

	limit := s.cfg.Grid.RecentCommentsLimit
	if limit <= 0 {
		limit = grid.DefaultRecentCommentsLimit
	}
	if s.cfg.Grid.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Grid.FetchTimeout)
		defer cancel()
	}

	comments, err := s.services.Comments.GetRecentComments(ctx, limit)
	if err != nil {
		log.Printf("Warning: failed to fetch recent comments: %v", err)
		return []models.Comment{}
	}
	if comments == nil {
		return []models.Comment{}
	}
	return comments
}

func (s *Server) getRecentComments(c *gin.Context) {
	defaultLimit := s.cfg.Grid.RecentCommentsLimit
	if defaultLimit <= 0 || defaultLimit > security.MaxCommentsLimit {
		defaultLimit = grid.DefaultRecentCommentsLimit
	}
	limit, err := security.ParseLimit(c.Query("limit"), defaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comments, err := s.services.Recent.GetRecentComments(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"count":    len(comments),
	})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.services.Posts.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getPollerStatus(c *gin.Context) {
	if s.services.Poller == nil {
		c.JSON(http.StatusOK, gin.H{
			"is_polling": false,
			"status":     "disabled",
		})
		return
	}

	status := "idle"
	if s.services.Poller.IsPolling() {
		status = "active"
	}
	c.JSON(http.StatusOK, gin.H{
		"is_polling":  s.services.Poller.IsPolling(),
		"status":      status,
		"feeds":       s.services.Poller.Feeds(),
		"last_polled": s.services.Poller.GetLastPolledTime(),
	})
}

func (s *Server) forcePoll(c *gin.Context) {
	if s.services.Poller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "poller not configured"})
		return
	}

	feed := c.Query("feed")
	if err := s.services.Poller.ForcePoll(c.Request.Context(), feed); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, poller.ErrUnknownFeed) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Force poll completed successfully",
		"feed":    feed,
	})
}
