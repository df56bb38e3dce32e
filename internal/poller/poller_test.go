package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"postgrid/internal/cache"
	"postgrid/internal/models"
	"postgrid/internal/storage"

	"github.com/mmcdole/gofeed"
)

const postsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
  xmlns:slash="http://purl.org/rss/1.0/modules/slash/"
  xmlns:wfw="http://wellformedweb.org/CommentAPI/"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Test Blog</title>
  <link>http://blog.example</link>
  <description>Posts</description>
  <item>
    <title>Hello World</title>
    <link>http://blog.example/hello</link>
    <guid>post-1</guid>
    <pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate>
    <dc:creator>Ada</dc:creator>
    <description>&lt;p&gt;Welcome &lt;strong&gt;readers&lt;/strong&gt;&lt;/p&gt;</description>
    <slash:comments>2</slash:comments>
    <wfw:commentRss>%s/comments/1</wfw:commentRss>
  </item>
  <item>
    <title>Second Post</title>
    <link>http://blog.example/second</link>
    <guid>post-2</guid>
    <pubDate>Tue, 02 Jan 2024 10:00:00 +0000</pubDate>
  </item>
</channel>
</rss>`

const commentsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Comments on Hello World</title>
  <link>http://blog.example/hello</link>
  <description>Comments</description>
  <item>
    <title>By: Grace</title>
    <guid>comment-1</guid>
    <pubDate>Wed, 03 Jan 2024 09:00:00 +0000</pubDate>
    <dc:creator>Grace</dc:creator>
    <description>Nice post</description>
  </item>
  <item>
    <title>By: Linus</title>
    <guid>comment-2</guid>
    <pubDate>Thu, 04 Jan 2024 09:00:00 +0000</pubDate>
    <dc:creator>Linus</dc:creator>
    <description>Agreed</description>
  </item>
</channel>
</rss>`

func newBlogServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, postsFeed, server.URL)
	})
	mux.HandleFunc("/comments/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, commentsFeed)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestPoller(t *testing.T, feeds []string, fetchComments bool) (*Poller, storage.Storage, *cache.Manager) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cacheManager := cache.NewManager(5 * time.Minute)
	return New(cacheManager, store, feeds, fetchComments, time.Hour), store, cacheManager
}

func TestPoller_New(t *testing.T) {
	p, _, _ := newTestPoller(t, []string{"http://example.com/feed"}, true)

	if p == nil {
		t.Fatal("Expected poller to be created, got nil")
	}

	if feeds := p.Feeds(); len(feeds) != 1 || feeds[0] != "http://example.com/feed" {
		t.Errorf("Unexpected feeds: %v", feeds)
	}
}

func TestPoller_ForcePoll_StoresPostsAndComments(t *testing.T) {
	server := newBlogServer(t)
	feedURL := server.URL + "/feed"
	p, store, cacheManager := newTestPoller(t, []string{feedURL}, true)
	ctx := context.Background()

	cacheManager.SetPosts([]models.Post{{ID: 99}})

	if err := p.ForcePoll(ctx, feedURL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	posts, err := store.ListPosts(ctx)
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}

	second, hello := posts[0], posts[1]
	if second.Title != "Second Post" || hello.Title != "Hello World" {
		t.Fatalf("Expected newest post first, got %q then %q", second.Title, hello.Title)
	}
	if hello.CommentCount == nil || *hello.CommentCount != 2 {
		t.Errorf("Expected comment count 2 from slash:comments, got %v", hello.CommentCount)
	}
	if second.CommentCount != nil {
		t.Errorf("Expected absent comment count, got %d", *second.CommentCount)
	}
	if hello.Author != "Ada" {
		t.Errorf("Expected author Ada, got %q", hello.Author)
	}
	if hello.Summary != "Welcome **readers**" {
		t.Errorf("Unexpected summary %q", hello.Summary)
	}
	if hello.CreatedAt != "2024-01-01T10:00:00.000Z" {
		t.Errorf("Unexpected created_at %q", hello.CreatedAt)
	}

	comments, err := store.RecentComments(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to load comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("Expected 2 comments, got %d", len(comments))
	}
	if comments[0].Author != "Linus" || comments[0].PostID != hello.ID {
		t.Errorf("Expected newest comment by Linus on post %d, got %+v", hello.ID, comments[0])
	}

	if _, found := cacheManager.Posts(); found {
		t.Error("Expected cache to be flushed after poll")
	}

	if p.GetLastPolledTime()[feedURL].IsZero() {
		t.Error("Expected last polled time to be recorded")
	}
}

func TestPoller_SkipsCommentFeedsWhenDisabled(t *testing.T) {
	server := newBlogServer(t)
	feedURL := server.URL + "/feed"
	p, store, _ := newTestPoller(t, []string{feedURL}, false)
	ctx := context.Background()

	if err := p.ForcePoll(ctx, ""); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	comments, err := store.RecentComments(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to load comments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("Expected no comments, got %d", len(comments))
	}
}

func TestPoller_ForcePoll_Errors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	feedURL := server.URL + "/missing"
	p, _, _ := newTestPoller(t, []string{feedURL}, true)

	if err := p.ForcePoll(context.Background(), "http://not-configured.example/feed"); !errors.Is(err, ErrUnknownFeed) {
		t.Errorf("Expected ErrUnknownFeed for unconfigured feed, got %v", err)
	}

	if err := p.ForcePoll(context.Background(), feedURL); err == nil {
		t.Error("Expected error for failing feed, got nil")
	}

	if p.GetLastPolledTime()[feedURL].IsZero() {
		t.Error("Expected failed poll to still record last polled time")
	}
}

func TestPoller_SetVerbose(t *testing.T) {
	server := newBlogServer(t)
	feedURL := server.URL + "/feed"
	p, _, _ := newTestPoller(t, []string{feedURL}, false)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	p.SetVerbose(false)
	if err := p.ForcePoll(context.Background(), feedURL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no progress lines when quiet, got %q", buf.String())
	}

	p.SetVerbose(true)
	if err := p.ForcePoll(context.Background(), feedURL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "Saved 2 posts") {
		t.Errorf("Expected progress lines when verbose, got %q", buf.String())
	}
}

func TestPoller_IsPolling(t *testing.T) {
	p, _, _ := newTestPoller(t, nil, true)

	// Initially should not be polling
	if p.IsPolling() {
		t.Error("Expected poller to not be polling initially")
	}

	p.Start()
	if !p.IsPolling() {
		t.Error("Expected poller to be polling after start")
	}

	p.Stop()
	if p.IsPolling() {
		t.Error("Expected poller to not be polling after stop")
	}
}

func TestItemID(t *testing.T) {
	a := itemID(&gofeed.Item{GUID: "post-1"})
	b := itemID(&gofeed.Item{GUID: "post-1", Link: "http://other"})
	c := itemID(&gofeed.Item{Link: "http://blog.example/hello"})

	if a != b {
		t.Error("Expected GUID to determine the id")
	}
	if a == c {
		t.Error("Expected different keys to give different ids")
	}
	if a < 0 || c < 0 {
		t.Error("Expected non-negative ids")
	}
}
