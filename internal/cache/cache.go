package cache

import (
	"fmt"
	"time"

	"postgrid/internal/models"

	"github.com/patrickmn/go-cache"
)

// Manager caches hot read paths (recent comments, post lists) in memory
type Manager struct {
	cache *cache.Cache
}

func NewManager(defaultTTL time.Duration) *Manager {
	return &Manager{
		cache: cache.New(defaultTTL, 10*time.Minute),
	}
}

func RecentCommentsKey(limit int) string {
	return fmt.Sprintf("comments:recent:%d", limit)
}

const postsKey = "posts:all"

// RecentComments returns a cached copy of the recent comments for limit
func (m *Manager) RecentComments(limit int) ([]models.Comment, bool) {
	cached, found := m.cache.Get(RecentCommentsKey(limit))
	if !found {
		return nil, false
	}
	comments, ok := cached.([]models.Comment)
	if !ok {
		return nil, false
	}
	return append([]models.Comment{}, comments...), true
}

func (m *Manager) SetRecentComments(limit int, comments []models.Comment) {
	m.cache.Set(RecentCommentsKey(limit), append([]models.Comment(nil), comments...), cache.DefaultExpiration)
}

// Posts returns a cached copy of the full post list
func (m *Manager) Posts() ([]models.Post, bool) {
	cached, found := m.cache.Get(postsKey)
	if !found {
		return nil, false
	}
	posts, ok := cached.([]models.Post)
	if !ok {
		return nil, false
	}
	return append([]models.Post{}, posts...), true
}

func (m *Manager) SetPosts(posts []models.Post) {
	m.cache.Set(postsKey, append([]models.Post(nil), posts...), cache.DefaultExpiration)
}

func (m *Manager) Delete(key string) {
	m.cache.Delete(key)
}

// Flush drops every cached entry, typically after new content was stored
func (m *Manager) Flush() {
	m.cache.Flush()
}

func (m *Manager) ItemCount() int {
	return m.cache.ItemCount()
}
