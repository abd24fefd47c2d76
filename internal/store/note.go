// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"notepress/internal/models"
)

// NoteStore handles all note-related database operations.
type NoteStore struct {
	db *sql.DB
}

// NewNoteStore creates a new NoteStore with the given database connection.
func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

const noteColumns = `id, user_id, username, title, content, tags, created_at, updated_at`

// List returns all notes newest-first. When tag is non-empty, only notes
// whose comma-split, trimmed tag list contains an exact match are kept.
// Tag filtering happens in memory after the query; tags are free-form text,
// not a relation.
func (s *NoteStore) List(tag string) ([]models.Note, error) {
	rows, err := s.db.Query(`
		SELECT ` + noteColumns + ` FROM notes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Username, &n.Title, &n.Content, &n.Tags,
			&n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if tag != "" && !n.HasTag(tag) {
			continue
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// FindByID retrieves a note by ID. Returns nil if not found.
func (s *NoteStore) FindByID(id int64) (*models.Note, error) {
	n := &models.Note{}
	err := s.db.QueryRow(`
		SELECT `+noteColumns+` FROM notes WHERE id = $1
	`, id).Scan(
		&n.ID, &n.UserID, &n.Username, &n.Title, &n.Content, &n.Tags,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find note by id: %w", err)
	}
	return n, nil
}

// Create inserts a new note. The author's username is captured here and
// never updated afterwards, even if the author renames.
func (s *NoteStore) Create(userID int64, username, title, content, tags string) (*models.Note, error) {
	n := &models.Note{}
	err := s.db.QueryRow(`
		INSERT INTO notes (user_id, username, title, content, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+noteColumns+`
	`, userID, username, title, content, tags).Scan(
		&n.ID, &n.UserID, &n.Username, &n.Title, &n.Content, &n.Tags,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// Delete removes a note by ID.
func (s *NoteStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
