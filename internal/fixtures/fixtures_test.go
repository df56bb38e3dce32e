package fixtures

import (
	"context"
	"errors"
	"strings"
	"testing"

	"postgrid/internal/models"
	"postgrid/internal/storage"
)

func TestLoad(t *testing.T) {
	set, err := Load("testdata/blog.yaml")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(set.Posts) != 3 || len(set.Comments) != 2 {
		t.Fatalf("Expected 3 posts and 2 comments, got %d and %d", len(set.Posts), len(set.Comments))
	}

	if set.Posts[0].Comments() != 2 {
		t.Errorf("Expected 2 comments on first post, got %d", set.Posts[0].Comments())
	}

	if set.Posts[1].CommentCount != nil {
		t.Error("Expected missing comment_count to stay absent")
	}

	if set.Posts[2].CommentCount == nil || *set.Posts[2].CommentCount != 0 {
		t.Error("Expected explicit zero comment_count to be present")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("testdata/missing.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "posts:\n  - id: 1\n    headline: nope\n"},
		{"duplicate post", "posts:\n  - id: 1\n  - id: 1\n"},
		{"negative count", "posts:\n  - id: 1\n    comment_count: -1\n"},
		{"orphan comment", "posts:\n  - id: 1\ncomments:\n  - id: 5\n    post_id: 2\n"},
		{"duplicate comment", "comments:\n  - id: 5\n    post_id: 1\n  - id: 5\n    post_id: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.yaml)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	set, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Expected empty document to decode, got %v", err)
	}
	if len(set.Posts) != 0 || len(set.Comments) != 0 {
		t.Errorf("Expected empty set, got %+v", set)
	}
}

func TestImport(t *testing.T) {
	store, err := storage.NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	set, err := Load("testdata/blog.yaml")
	if err != nil {
		t.Fatalf("Failed to load fixtures: %v", err)
	}

	ctx := context.Background()
	if err := set.Import(ctx, store); err != nil {
		t.Fatalf("Failed to import fixtures: %v", err)
	}

	posts, err := store.ListPosts(ctx)
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(posts) != 3 || posts[0].ID != 2 {
		t.Errorf("Expected 3 posts with post 2 newest, got %+v", posts)
	}

	comments, err := store.RecentComments(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to load comments: %v", err)
	}
	if len(comments) != 1 || comments[0].ID != 11 {
		t.Errorf("Expected comment 11 as most recent, got %+v", comments)
	}
}

type failingStore struct{}

func (failingStore) SavePosts(ctx context.Context, posts []models.Post) error {
	return errors.New("disk full")
}

func (failingStore) SaveComments(ctx context.Context, comments []models.Comment) error {
	return nil
}

func TestImport_PropagatesErrors(t *testing.T) {
	set := &Set{Posts: []models.Post{{ID: 1}}}
	if err := set.Import(context.Background(), failingStore{}); err == nil {
		t.Error("Expected storage error to propagate")
	}
}
