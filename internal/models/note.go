// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"
)

// Note is a short markdown post. Username is a copy of the author's name
// taken at creation time; it is not updated when the author renames.
type Note struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      string    `json:"tags"` // comma-separated, free-form
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagList splits the comma-separated tags field into trimmed entries.
// Empty entries are dropped.
func (n *Note) TagList() []string {
	if n.Tags == "" {
		return nil
	}
	parts := strings.Split(n.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// HasTag reports whether the note's tag list contains an exact,
// case-sensitive match for tag. The filter itself is not trimmed, so a
// note tagged "a, b" matches "b" but not " b" or "B".
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.TagList() {
		if t == tag {
			return true
		}
	}
	return false
}
