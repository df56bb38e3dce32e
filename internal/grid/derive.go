package grid

import (
	"sort"
	"time"

	"postgrid/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLocale is the collation locale used for title ordering
var DefaultLocale = language.English

// Derive computes the ordered sequence of posts shown for the given view and
// sort mode. recent is nil when recent comments have not been fetched.
// The input slice is never modified.
func Derive(posts []models.Post, view models.ViewMode, sortMode models.SortMode, recent []models.Comment) []models.Post {
	return DeriveLocale(DefaultLocale, posts, view, sortMode, recent)
}

// DeriveLocale is Derive with an explicit collation locale for title sorts.
func DeriveLocale(tag language.Tag, posts []models.Post, view models.ViewMode, sortMode models.SortMode, recent []models.Comment) []models.Post {
	result := make([]models.Post, len(posts))
	copy(result, posts)

	switch view {
	case models.ViewPopular:
		return mostPopular(result)
	case models.ViewRecentPosts:
		sortPosts(result, models.SortNewest, tag)
	case models.ViewRecentComments:
		result = recentlyCommented(result, recent)
	}

	sortPosts(result, sortMode, tag)
	return result
}

// mostPopular returns the single post with the highest comment count.
// Ties resolve to the earliest post in input order.
func mostPopular(posts []models.Post) []models.Post {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Comments() > posts[j].Comments()
	})
	if len(posts) > 1 {
		posts = posts[:1]
	}
	return posts
}

// LatestCommentTimes maps each post id to the newest comment timestamp seen for it.
// An equal timestamp later in the list does not replace an earlier one.
func LatestCommentTimes(comments []models.Comment) map[int64]time.Time {
	latest := make(map[int64]time.Time, len(comments))
	for _, comment := range comments {
		ts := ParseTimestamp(comment.CreatedAt)
		if current, ok := latest[comment.PostID]; !ok || ts.After(current) {
			latest[comment.PostID] = ts
		}
	}
	return latest
}

func recentlyCommented(posts []models.Post, comments []models.Comment) []models.Post {
	if len(comments) == 0 {
		return []models.Post{}
	}

	latest := LatestCommentTimes(comments)
	filtered := make([]models.Post, 0, len(latest))
	for _, post := range posts {
		if _, ok := latest[post.ID]; ok {
			filtered = append(filtered, post)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return latest[filtered[i].ID].After(latest[filtered[j].ID])
	})
	return filtered
}

func sortPosts(posts []models.Post, sortMode models.SortMode, tag language.Tag) {
	var less func(a, b models.Post) bool

	switch sortMode {
	case models.SortNewest:
		less = func(a, b models.Post) bool {
			return ParseTimestamp(a.CreatedAt).After(ParseTimestamp(b.CreatedAt))
		}
	case models.SortOldest:
		less = func(a, b models.Post) bool {
			return ParseTimestamp(a.CreatedAt).Before(ParseTimestamp(b.CreatedAt))
		}
	case models.SortMostComments:
		less = func(a, b models.Post) bool { return a.Comments() > b.Comments() }
	case models.SortLeastComments:
		less = func(a, b models.Post) bool { return a.Comments() < b.Comments() }
	case models.SortTitleAsc, models.SortTitleDesc:
		// Collators keep internal buffers and are not safe for concurrent use.
		collator := collate.New(tag)
		desc := sortMode == models.SortTitleDesc
		less = func(a, b models.Post) bool {
			cmp := collator.CompareString(a.Title, b.Title)
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
	default:
		return
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return less(posts[i], posts[j])
	})
}
