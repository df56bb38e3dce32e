package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"postgrid/internal/grid"
	"postgrid/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// storedTimestampLayout is fixed-width so stored timestamps order correctly as text
const storedTimestampLayout = "2006-01-02T15:04:05.000Z"

// SQLStorage stores posts and comments in SQLite or PostgreSQL through sqlx
type SQLStorage struct {
	db     *sqlx.DB
	driver string
}

func NewSQLStorage(driver, dsn string, maxOpenConns int) (*SQLStorage, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpenConns < 1 {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(max(1, maxOpenConns/2))
	db.SetConnMaxLifetime(time.Hour)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("Storage ready (driver=%s)", driver)
	return &SQLStorage{db: db, driver: driver}, nil
}

func ensureDataDir(dataDir string) error {
	// Ensure data directory exists with secure permissions (0750)
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// createTables uses DDL understood by both SQLite and PostgreSQL
func createTables(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL,
			comment_count INTEGER,
			summary TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id BIGINT PRIMARY KEY,
			post_id BIGINT NOT NULL,
			created_at TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT ''
		)`,
		"CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comments_created_at ON comments(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)",
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// normalizeTimestamp rewrites parseable timestamps to fixed-width UTC.
// Unparsable values are stored unchanged.
func normalizeTimestamp(s string) string {
	ts := grid.ParseTimestamp(s)
	if ts.IsZero() {
		return s
	}
	return ts.UTC().Format(storedTimestampLayout)
}

func (s *SQLStorage) SavePosts(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO posts (id, title, created_at, comment_count, summary, link, author)
		VALUES (:id, :title, :created_at, :comment_count, :summary, :link, :author)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			created_at = excluded.created_at,
			comment_count = excluded.comment_count,
			summary = excluded.summary,
			link = excluded.link,
			author = excluded.author`

	for _, post := range posts {
		post.CreatedAt = normalizeTimestamp(post.CreatedAt)
		if _, err := tx.NamedExecContext(ctx, query, post); err != nil {
			return fmt.Errorf("failed to save post %d: %w", post.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit posts: %w", err)
	}
	return nil
}

func (s *SQLStorage) SaveComments(ctx context.Context, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO comments (id, post_id, created_at, author, body)
		VALUES (:id, :post_id, :created_at, :author, :body)
		ON CONFLICT (id) DO UPDATE SET
			post_id = excluded.post_id,
			created_at = excluded.created_at,
			author = excluded.author,
			body = excluded.body`

	for _, comment := range comments {
		comment.CreatedAt = normalizeTimestamp(comment.CreatedAt)
		if _, err := tx.NamedExecContext(ctx, query, comment); err != nil {
			return fmt.Errorf("failed to save comment %d: %w", comment.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comments: %w", err)
	}
	return nil
}

// ListPosts returns all posts, newest first
func (s *SQLStorage) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	query := `SELECT id, title, created_at, comment_count, summary, link, author
		FROM posts ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &posts, query); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// RecentComments returns up to limit comments, newest first
func (s *SQLStorage) RecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	if limit <= 0 {
		return []models.Comment{}, nil
	}

	comments := []models.Comment{}
	query := s.db.Rebind(`SELECT id, post_id, created_at, author, body
		FROM comments ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &comments, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent comments: %w", err)
	}
	return comments, nil
}

func (s *SQLStorage) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{Driver: s.driver}

	postQuery := `SELECT COUNT(*) AS post_count, COALESCE(MAX(created_at), '') AS latest_post_at FROM posts`
	if err := s.db.GetContext(ctx, stats, postQuery); err != nil {
		return nil, fmt.Errorf("failed to get post stats: %w", err)
	}

	commentQuery := `SELECT COUNT(*) AS comment_count, COALESCE(MAX(created_at), '') AS latest_comment_at FROM comments`
	if err := s.db.GetContext(ctx, stats, commentQuery); err != nil {
		return nil, fmt.Errorf("failed to get comment stats: %w", err)
	}

	return stats, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
