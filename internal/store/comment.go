package store

import (
	"database/sql"
	"fmt"

	"notepress/internal/models"
)

// CommentStore handles all comment-related database operations.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore with the given database connection.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

// ListByPost returns all comments on a note, oldest first.
func (s *CommentStore) ListByPost(postID int64) ([]models.Comment, error) {
	rows, err := s.db.Query(`
		SELECT id, post_id, username, content, created_at
		FROM comments WHERE post_id = $1 ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Username, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Create inserts a new comment on a note.
func (s *CommentStore) Create(postID int64, username, content string) (*models.Comment, error) {
	c := &models.Comment{}
	err := s.db.QueryRow(`
		INSERT INTO comments (post_id, username, content)
		VALUES ($1, $2, $3)
		RETURNING id, post_id, username, content, created_at
	`, postID, username, content).Scan(&c.ID, &c.PostID, &c.Username, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// Delete removes a comment by ID.
func (s *CommentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
