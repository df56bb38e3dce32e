package storage

import (
	"context"

	"postgrid/internal/models"
)

// Storage defines the interface for different storage backends
type Storage interface {
	SavePosts(ctx context.Context, posts []models.Post) error
	SaveComments(ctx context.Context, comments []models.Comment) error
	ListPosts(ctx context.Context) ([]models.Post, error)
	RecentComments(ctx context.Context, limit int) ([]models.Comment, error)
	GetStats(ctx context.Context) (*models.Stats, error)
	Close() error
}
