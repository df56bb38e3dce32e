package fixtures

import (
	"context"
	"fmt"
	"io"
	"os"

	"postgrid/internal/models"

	"gopkg.in/yaml.v3"
)

// Set is a batch of posts and comments, typically seeded from a YAML file
type Set struct {
	Posts    []models.Post    `yaml:"posts"`
	Comments []models.Comment `yaml:"comments"`
}

// Store is the subset of storage the importer writes to
type Store interface {
	SavePosts(ctx context.Context, posts []models.Post) error
	SaveComments(ctx context.Context, comments []models.Comment) error
}

func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Set, error) {
	var set Set
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&set); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Validate rejects duplicate ids and comments pointing at unknown posts
func (s *Set) Validate() error {
	postIDs := make(map[int64]bool, len(s.Posts))
	for i, post := range s.Posts {
		if postIDs[post.ID] {
			return fmt.Errorf("post %d: duplicate id %d", i, post.ID)
		}
		if post.CommentCount != nil && *post.CommentCount < 0 {
			return fmt.Errorf("post %d: negative comment_count", i)
		}
		postIDs[post.ID] = true
	}

	commentIDs := make(map[int64]bool, len(s.Comments))
	for i, comment := range s.Comments {
		if commentIDs[comment.ID] {
			return fmt.Errorf("comment %d: duplicate id %d", i, comment.ID)
		}
		if len(s.Posts) > 0 && !postIDs[comment.PostID] {
			return fmt.Errorf("comment %d: unknown post_id %d", i, comment.PostID)
		}
		commentIDs[comment.ID] = true
	}
	return nil
}

// Import saves the posts, then the comments
func (s *Set) Import(ctx context.Context, store Store) error {
	if len(s.Posts) > 0 {
		if err := store.SavePosts(ctx, s.Posts); err != nil {
			return fmt.Errorf("failed to import posts: %w", err)
		}
	}
	if len(s.Comments) > 0 {
		if err := store.SaveComments(ctx, s.Comments); err != nil {
			return fmt.Errorf("failed to import comments: %w", err)
		}
	}
	return nil
}
