package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"notepress/internal/markdown"
	"notepress/internal/middleware"
	"notepress/internal/store"
)

// Posts groups the note and comment handlers.
type Posts struct {
	notes    *store.NoteStore
	comments *store.CommentStore
}

func NewPosts(notes *store.NoteStore, comments *store.CommentStore) *Posts {
	return &Posts{notes: notes, comments: comments}
}

// List returns all notes, newest first, optionally filtered by the ?tag=
// query parameter. The filter matches any of a note's comma-separated tags
// exactly, case sensitively.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.URL.Query().Get("tag"))
	if err != nil {
		h.serverError(w, "note list", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get returns a single note with its markdown body rendered as an extra
// "html" field. Rendering happens at read time; the stored content is
// always the raw markdown.
func (h *Posts) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	note, err := h.notes.FindByID(id)
	if err != nil {
		h.serverError(w, "note get", err)
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, "Note not found.")
		return
	}

	html, err := markdown.ToHTML(note.Content)
	if err != nil {
		h.serverError(w, "note render", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         note.ID,
		"user_id":    note.UserID,
		"username":   note.Username,
		"title":      note.Title,
		"content":    note.Content,
		"tags":       note.Tags,
		"html":       html,
		"created_at": note.CreatedAt,
		"updated_at": note.UpdatedAt,
	})
}

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

// Create stores a new note owned by the caller. The author's username is
// denormalized onto the row so listings need no join.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())

	var req createNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Tags = strings.TrimSpace(req.Tags)

	if msg := validateNote(req.Title, req.Content, req.Tags); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	note, err := h.notes.Create(ident.ID, ident.Username, req.Title, req.Content, req.Tags)
	if err != nil {
		h.serverError(w, "note create", err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// Delete removes a note and, via the foreign key, its comments.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	note, err := h.notes.FindByID(id)
	if err != nil {
		h.serverError(w, "note delete lookup", err)
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, "Note not found.")
		return
	}

	if err := h.notes.Delete(id); err != nil {
		h.serverError(w, "note delete", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ListComments returns a note's comments oldest first.
func (h *Posts) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	note, err := h.notes.FindByID(id)
	if err != nil {
		h.serverError(w, "comment list lookup", err)
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, "Note not found.")
		return
	}

	comments, err := h.comments.ListByPost(id)
	if err != nil {
		h.serverError(w, "comment list", err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// CreateComment adds a comment under the caller's username.
func (h *Posts) CreateComment(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	note, err := h.notes.FindByID(id)
	if err != nil {
		h.serverError(w, "comment create lookup", err)
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, "Note not found.")
		return
	}

	var req createCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if msg := validateComment(req.Content); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	comment, err := h.comments.Create(id, ident.Username, req.Content)
	if err != nil {
		h.serverError(w, "comment create", err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// DeleteComment removes a single comment.
func (h *Posts) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "commentID")
	if !ok {
		return
	}

	if err := h.comments.Delete(id); err != nil {
		h.serverError(w, "comment delete", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Posts) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id.")
		return 0, false
	}
	return id, true
}

func (h *Posts) serverError(w http.ResponseWriter, op string, err error) {
	slogError(op, err)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}
