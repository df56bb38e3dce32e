package poller

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"postgrid/internal/cache"
	"postgrid/internal/models"
	"postgrid/internal/storage"

	"github.com/mmcdole/gofeed"
)

const feedTimeout = 30 * time.Second

// ErrUnknownFeed is returned when force polling a feed that is not configured
var ErrUnknownFeed = errors.New("feed not configured")

type Poller struct {
	cacheManager  *cache.Manager
	storage       storage.Storage
	feeds         []string
	fetchComments bool
	parser        *gofeed.Parser
	pollInterval  time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
	lastPolled    map[string]time.Time
	isPolling     bool
	verbose       bool
}

func New(cacheManager *cache.Manager, storage storage.Storage, feeds []string, fetchComments bool, pollInterval time.Duration) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		cacheManager:  cacheManager,
		storage:       storage,
		feeds:         feeds,
		fetchComments: fetchComments,
		parser:        gofeed.NewParser(),
		pollInterval:  pollInterval,
		ctx:           ctx,
		cancel:        cancel,
		lastPolled:    make(map[string]time.Time),
		verbose:       true,
	}
}

// SetVerbose toggles progress logging. Errors are logged either way.
func (p *Poller) SetVerbose(verbose bool) {
	p.verbose = verbose
}

func (p *Poller) infof(format string, args ...interface{}) {
	if p.verbose {
		log.Printf(format, args...)
	}
}

func (p *Poller) Start() {
	p.mu.Lock()
	if p.isPolling {
		p.mu.Unlock()
		return
	}
	p.isPolling = true
	p.mu.Unlock()

	p.infof("Starting blog feed poller with interval: %v", p.pollInterval)

	p.wg.Add(1)
	go p.pollLoop()
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.isPolling {
		p.mu.Unlock()
		return
	}
	p.isPolling = false
	p.mu.Unlock()

	p.infof("Stopping blog feed poller...")
	p.cancel()
	p.wg.Wait()
	p.infof("Blog feed poller stopped")
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Poll immediately on start
	p.PollAll(p.ctx)

	for {
		select {
		case <-ticker.C:
			p.PollAll(p.ctx)
		case <-p.ctx.Done():
			return
		}
	}
}

// PollAll fetches every configured feed in parallel and stores the results
func (p *Poller) PollAll(ctx context.Context) {
	if len(p.feeds) == 0 {
		return
	}
	p.infof("Starting background feed polling...")

	var wg sync.WaitGroup
	for _, feedURL := range p.feeds {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if err := p.pollFeed(ctx, url); err != nil {
				log.Printf("Error polling feed %s: %v", url, err)
			}
		}(feedURL)
	}

	wg.Wait()
	p.infof("Background feed polling completed")
}

// ForcePoll polls a single configured feed, or all feeds when feedURL is empty
func (p *Poller) ForcePoll(ctx context.Context, feedURL string) error {
	if feedURL == "" {
		p.infof("Force polling all feeds")
		p.PollAll(ctx)
		return nil
	}

	p.infof("Force polling feed: %s", feedURL)
	if !p.hasFeed(feedURL) {
		return fmt.Errorf("%w: %s", ErrUnknownFeed, feedURL)
	}
	return p.pollFeed(ctx, feedURL)
}

func (p *Poller) hasFeed(feedURL string) bool {
	for _, configured := range p.feeds {
		if configured == feedURL {
			return true
		}
	}
	return false
}

func (p *Poller) pollFeed(ctx context.Context, feedURL string) error {
	defer p.markPolled(feedURL)

	posts, comments, err := p.fetchFeed(ctx, feedURL)
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		p.infof("No posts found in feed: %s", feedURL)
		return nil
	}

	if err := p.storage.SavePosts(ctx, posts); err != nil {
		return fmt.Errorf("failed to save posts: %w", err)
	}
	if len(comments) > 0 {
		if err := p.storage.SaveComments(ctx, comments); err != nil {
			return fmt.Errorf("failed to save comments: %w", err)
		}
	}
	p.infof("Saved %d posts and %d comments from feed: %s", len(posts), len(comments), feedURL)

	if p.cacheManager != nil {
		p.cacheManager.Flush()
	}
	return nil
}

func (p *Poller) markPolled(feedURL string) {
	p.mu.Lock()
	p.lastPolled[feedURL] = time.Now()
	p.mu.Unlock()
}

func (p *Poller) fetchFeed(ctx context.Context, feedURL string) ([]models.Post, []models.Comment, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	feed, err := p.parser.ParseURLWithContext(feedURL, fetchCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("http error: %w", err)
	}

	posts := make([]models.Post, 0, len(feed.Items))
	var comments []models.Comment
	for _, item := range feed.Items {
		post := itemToPost(item)

		if p.fetchComments {
			if commentURL := extensionValue(item, "wfw", "commentRss"); commentURL != "" {
				postComments, err := p.fetchCommentFeed(fetchCtx, post.ID, commentURL)
				if err != nil {
					log.Printf("Warning: failed to fetch comments for '%s': %v", post.Title, err)
				} else {
					comments = append(comments, postComments...)
					if post.CommentCount == nil {
						count := len(postComments)
						post.CommentCount = &count
					}
				}
			}
		}

		posts = append(posts, post)
	}

	return posts, comments, nil
}

func (p *Poller) fetchCommentFeed(ctx context.Context, postID int64, commentURL string) ([]models.Comment, error) {
	feed, err := p.parser.ParseURLWithContext(commentURL, ctx)
	if err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(feed.Items))
	for _, item := range feed.Items {
		comment := models.Comment{
			ID:        itemID(item),
			PostID:    postID,
			CreatedAt: itemTimestamp(item),
			Body:      htmlToSummary(firstNonEmpty(item.Description, item.Content)),
		}
		if item.Author != nil {
			comment.Author = item.Author.Name
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

func itemToPost(item *gofeed.Item) models.Post {
	post := models.Post{
		ID:        itemID(item),
		Title:     strings.TrimSpace(item.Title),
		CreatedAt: itemTimestamp(item),
		Summary:   htmlToSummary(firstNonEmpty(item.Description, item.Content)),
		Link:      item.Link,
	}
	if item.Author != nil {
		post.Author = item.Author.Name
	}
	if raw := extensionValue(item, "slash", "comments"); raw != "" {
		if count, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && count >= 0 {
			post.CommentCount = &count
		}
	}
	return post
}

// itemID derives a stable identifier from the item GUID, falling back to its link and title
func itemID(item *gofeed.Item) int64 {
	key := firstNonEmpty(item.GUID, item.Link, item.Title)
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64() & math.MaxInt64)
}

// itemTimestamp returns the publication time in UTC, or "" when the feed omits it
func itemTimestamp(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

func extensionValue(item *gofeed.Item, prefix, name string) string {
	if item.Extensions == nil {
		return ""
	}
	values := item.Extensions[prefix][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (p *Poller) GetLastPolledTime() map[string]time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string]time.Time, len(p.lastPolled))
	for feed, polledAt := range p.lastPolled {
		result[feed] = polledAt
	}
	return result
}

func (p *Poller) IsPolling() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isPolling
}

func (p *Poller) Feeds() []string {
	return append([]string(nil), p.feeds...)
}
