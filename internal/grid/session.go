package grid

import (
	"context"
	"log"
	"sync"

	"postgrid/internal/models"

	"golang.org/x/text/language"
)

// DefaultRecentCommentsLimit is the number of comments requested when the
// recent_comments view is entered.
const DefaultRecentCommentsLimit = 20

// CommentFetcher retrieves the most recent comments across all posts
type CommentFetcher interface {
	GetRecentComments(ctx context.Context, limit int) ([]models.Comment, error)
}

// Snapshot is a point-in-time copy of a session's state
type Snapshot struct {
	Posts        []models.Post
	Loading      bool
	View         models.ViewMode
	Sort         models.SortMode
	Derived      []models.Post
	RecentLoaded bool
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithLocale sets the collation locale used for title sorts
func WithLocale(tag language.Tag) SessionOption {
	return func(s *Session) { s.locale = tag }
}

// WithRecentCommentsLimit sets how many comments are fetched for the recent_comments view
func WithRecentCommentsLimit(limit int) SessionOption {
	return func(s *Session) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithOnChange registers a callback invoked after every recomputation.
// It runs outside the session lock and may call Snapshot.
func WithOnChange(fn func(Snapshot)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// Session holds the local state of one mounted post grid: the selected view
// and sort modes, the fetched recent comments and the derived post list.
type Session struct {
	fetcher  CommentFetcher
	limit    int
	locale   language.Tag
	onChange func(Snapshot)

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	mounted   bool
	gen       uint64
	posts     []models.Post
	loading   bool
	view      models.ViewMode
	sort      models.SortMode
	recent    []models.Comment
	hasRecent bool
	derived   []models.Post
	wg        sync.WaitGroup
}

// NewSession creates a mounted session in the default view and sort mode
func NewSession(fetcher CommentFetcher, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		fetcher: fetcher,
		limit:   DefaultRecentCommentsLimit,
		locale:  DefaultLocale,
		ctx:     ctx,
		cancel:  cancel,
		mounted: true,
		view:    models.DefaultViewMode,
		sort:    models.DefaultSortMode,
		derived: []models.Post{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPosts replaces the input posts and loading flag
func (s *Session) SetPosts(posts []models.Post, loading bool) {
	s.mu.Lock()
	s.posts = append([]models.Post(nil), posts...)
	s.loading = loading
	snap := s.recomputeLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetSort changes the sort mode and re-derives the view
func (s *Session) SetSort(sortMode models.SortMode) {
	s.mu.Lock()
	s.sort = sortMode
	snap := s.recomputeLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetView changes the view mode and re-derives the view. Entering the
// recent_comments view starts a fetch of recent comments in the background;
// the returned channel is closed once that fetch has settled, whether its
// result was applied or discarded. When no fetch starts the channel is
// already closed.
func (s *Session) SetView(view models.ViewMode) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		close(done)
		return done
	}

	previous := s.view
	s.view = view
	if previous != view {
		s.gen++
	}
	snap := s.recomputeLocked()

	startFetch := view == models.ViewRecentComments && previous != view && s.fetcher != nil
	if startFetch {
		s.wg.Add(1)
		go s.fetchRecent(s.ctx, s.gen, done)
	}
	s.mu.Unlock()

	if !startFetch {
		close(done)
	}
	s.notify(snap)
	return done
}

func (s *Session) fetchRecent(ctx context.Context, gen uint64, done chan<- struct{}) {
	defer s.wg.Done()
	defer close(done)

	comments, err := s.fetcher.GetRecentComments(ctx, s.limit)
	if err != nil && ctx.Err() == nil {
		log.Printf("Warning: failed to fetch recent comments: %v", err)
	}
	if err != nil || comments == nil {
		comments = []models.Comment{}
	}

	s.mu.Lock()
	if !s.mounted || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.recent = comments
	s.hasRecent = true
	snap := s.recomputeLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Unmount tears the session down. Any fetch still in flight has its context
// cancelled and its result ignored, and the fetched comments are dropped.
func (s *Session) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	s.gen++
	s.recent = nil
	s.hasRecent = false
	s.mu.Unlock()

	s.cancel()
}

// Wait blocks until all background fetches have returned
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) recomputeLocked() Snapshot {
	var recent []models.Comment
	if s.hasRecent {
		recent = s.recent
	}
	s.derived = DeriveLocale(s.locale, s.posts, s.view, s.sort, recent)
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Posts:        append([]models.Post(nil), s.posts...),
		Loading:      s.loading,
		View:         s.view,
		Sort:         s.sort,
		Derived:      append([]models.Post{}, s.derived...),
		RecentLoaded: s.hasRecent,
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
