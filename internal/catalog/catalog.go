package catalog

import (
	"context"
	"fmt"

	"postgrid/internal/cache"
	"postgrid/internal/models"
	"postgrid/internal/storage"
)

// Catalog serves posts and stats from storage through the in-memory cache
type Catalog struct {
	storage      storage.Storage
	cacheManager *cache.Manager
}

func New(storage storage.Storage, cacheManager *cache.Manager) *Catalog {
	return &Catalog{storage: storage, cacheManager: cacheManager}
}

// ListPosts returns all posts, newest first
func (c *Catalog) ListPosts(ctx context.Context) ([]models.Post, error) {
	if c.cacheManager != nil {
		if posts, found := c.cacheManager.Posts(); found {
			return posts, nil
		}
	}

	posts, err := c.storage.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}

	if c.cacheManager != nil {
		c.cacheManager.SetPosts(posts)
	}
	return posts, nil
}

func (c *Catalog) GetStats(ctx context.Context) (*models.Stats, error) {
	return c.storage.GetStats(ctx)
}
