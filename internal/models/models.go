package models

import (
	"fmt"
	"strings"
)

// Post represents a single blog-style post as supplied by the host application
type Post struct {
	ID           int64  `json:"id" db:"id" yaml:"id"`
	Title        string `json:"title" db:"title" yaml:"title"`
	CreatedAt    string `json:"created_at" db:"created_at" yaml:"created_at"`
	CommentCount *int   `json:"comment_count,omitempty" db:"comment_count" yaml:"comment_count,omitempty"`
	Summary      string `json:"summary,omitempty" db:"summary" yaml:"summary,omitempty"`
	Link         string `json:"link,omitempty" db:"link" yaml:"link,omitempty"`
	Author       string `json:"author,omitempty" db:"author" yaml:"author,omitempty"`
}

// Comments returns the comment count, treating an absent count as zero
func (p Post) Comments() int {
	if p.CommentCount == nil {
		return 0
	}
	return *p.CommentCount
}

// Comment represents a comment on a post
type Comment struct {
	ID        int64  `json:"id" db:"id" yaml:"id"`
	PostID    int64  `json:"post_id" db:"post_id" yaml:"post_id"`
	CreatedAt string `json:"created_at" db:"created_at" yaml:"created_at"`
	Author    string `json:"author,omitempty" db:"author" yaml:"author,omitempty"`
	Body      string `json:"body,omitempty" db:"body" yaml:"body,omitempty"`
}

// ViewMode selects which subset of posts is shown
type ViewMode string

const (
	ViewAll            ViewMode = "all"
	ViewPopular        ViewMode = "popular"
	ViewRecentPosts    ViewMode = "recent_posts"
	ViewRecentComments ViewMode = "recent_comments"
)

// SortMode selects the ordering applied after the view filter
type SortMode string

const (
	SortNewest        SortMode = "newest"
	SortOldest        SortMode = "oldest"
	SortMostComments  SortMode = "most_comments"
	SortLeastComments SortMode = "least_comments"
	SortTitleAsc      SortMode = "title_asc"
	SortTitleDesc     SortMode = "title_desc"
)

const (
	DefaultViewMode = ViewAll
	DefaultSortMode = SortNewest
)

// Option is a value/label pair used by the selector controls
type Option struct {
	Value string
	Label string
}

var viewModes = []Option{
	{Value: string(ViewAll), Label: "All posts"},
	{Value: string(ViewPopular), Label: "Most popular"},
	{Value: string(ViewRecentPosts), Label: "Recent posts"},
	{Value: string(ViewRecentComments), Label: "Recently commented"},
}

var sortModes = []Option{
	{Value: string(SortNewest), Label: "Newest first"},
	{Value: string(SortOldest), Label: "Oldest first"},
	{Value: string(SortMostComments), Label: "Most comments"},
	{Value: string(SortLeastComments), Label: "Least comments"},
	{Value: string(SortTitleAsc), Label: "Title (A-Z)"},
	{Value: string(SortTitleDesc), Label: "Title (Z-A)"},
}

// ViewModeOptions returns the selectable view modes in display order
func ViewModeOptions() []Option {
	return append([]Option(nil), viewModes...)
}

// SortModeOptions returns the selectable sort modes in display order
func SortModeOptions() []Option {
	return append([]Option(nil), sortModes...)
}

// ParseViewMode parses a view mode; an empty string yields the default
func ParseViewMode(s string) (ViewMode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return DefaultViewMode, nil
	}
	for _, opt := range viewModes {
		if opt.Value == s {
			return ViewMode(s), nil
		}
	}
	return "", fmt.Errorf("unknown view mode '%s'", s)
}

// ParseSortMode parses a sort mode; an empty string yields the default
func ParseSortMode(s string) (SortMode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return DefaultSortMode, nil
	}
	for _, opt := range sortModes {
		if opt.Value == s {
			return SortMode(s), nil
		}
	}
	return "", fmt.Errorf("unknown sort mode '%s'", s)
}

// Stats summarises stored content
type Stats struct {
	PostCount       int    `json:"post_count" db:"post_count"`
	CommentCount    int    `json:"comment_count" db:"comment_count"`
	LatestPostAt    string `json:"latest_post_at,omitempty" db:"latest_post_at"`
	LatestCommentAt string `json:"latest_comment_at,omitempty" db:"latest_comment_at"`
	Driver          string `json:"driver"`
}
