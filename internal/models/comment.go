package models

import "time"

// Comment is a reader comment attached to a note. Like notes, the author's
// username is denormalized at creation time.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
