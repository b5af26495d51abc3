// Package demo hosts the example server: a small blog whose routes
// exercise server rendering, boundary attribution, and deferred comment
// streaming end to end.
package demo

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mamala42/remix/internal/platform/storage/sqlitemigrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Post is one stored article.
type Post struct {
	ID    string
	Title string
	Body  string
}

// Comment is one stored comment on a post.
type Comment struct {
	ID     string
	PostID string
	Author string
	Body   string
}

// Store is the demo's sqlite-backed persistence.
type Store struct {
	db *sql.DB
}

// OpenStore opens the sqlite database at path and applies migrations.
// Use ":memory:" for an ephemeral store.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// A pooled second connection to ":memory:" would open a separate
	// empty database.
	db.SetMaxOpenConns(1)
	if err := sqlitemigrate.Apply(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListPosts returns all posts ordered by id.
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, body FROM posts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// SearchPosts returns posts whose title contains the query, ordered by id.
// An empty query matches every post.
func (s *Store) SearchPosts(ctx context.Context, query string) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, body FROM posts WHERE title LIKE '%' || ? || '%' ORDER BY id", query)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns the post with the given id, or sql.ErrNoRows.
func (s *Store) GetPost(ctx context.Context, id string) (Post, error) {
	var p Post
	row := s.db.QueryRowContext(ctx, "SELECT id, title, body FROM posts WHERE id = ?", id)
	if err := row.Scan(&p.ID, &p.Title, &p.Body); err != nil {
		return Post{}, err
	}
	return p, nil
}

// ListComments returns a post's comments ordered by id.
func (s *Store) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, post_id, author, body FROM comments WHERE post_id = ? ORDER BY id", postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Author, &c.Body); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// AddComment stores a new comment.
func (s *Store) AddComment(ctx context.Context, c Comment) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO comments (id, post_id, author, body) VALUES (?, ?, ?, ?)",
		c.ID, c.PostID, c.Author, c.Body)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}
