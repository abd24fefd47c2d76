// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"notepress/internal/auth"
	"notepress/internal/middleware"
	"notepress/internal/models"
	"notepress/internal/store"
)

// Users groups the admin-only account management handlers.
type Users struct {
	users *store.UserStore
}

func NewUsers(users *store.UserStore) *Users {
	return &Users{users: users}
}

// List returns every account without password digests.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		h.serverError(w, "user list", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type addUserRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Add creates an account with an explicit role, bypassing the
// first-user-admin bootstrap of self registration.
func (h *Users) Add(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if msg := validateUsername(req.Username); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Email != "" {
		if msg := validateEmail(req.Email); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if msg := validatePassword(req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "Role must be \"admin\" or \"user\".")
		return
	}

	user, err := h.users.Create(
		req.Username,
		optionalString(req.Email),
		optionalString(req.Phone),
		auth.HashPassword(req.Password),
		req.Role,
	)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "Username, email, or phone is already in use.")
		return
	}
	if err != nil {
		h.serverError(w, "user add", err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Role     models.Role `json:"role"`
}

// Update edits another account's profile fields and role.
func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	target, err := h.users.FindByID(id)
	if err != nil {
		h.serverError(w, "user update lookup", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if msg := validateUsername(req.Username); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Email != "" {
		if msg := validateEmail(req.Email); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if req.Role == "" {
		req.Role = target.Role
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "Role must be \"admin\" or \"user\".")
		return
	}

	err = h.users.UpdateWithRole(id, req.Username, optionalString(req.Email), optionalString(req.Phone), req.Role)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "Username, email, or phone is already in use.")
		return
	}
	if err != nil {
		h.serverError(w, "user update", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Delete removes an account. Admins cannot delete themselves; demote or
// have another admin do it.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if ident := middleware.IdentityFromCtx(r.Context()); ident != nil && ident.ID == id {
		writeError(w, http.StatusForbidden, "You cannot delete your own account.")
		return
	}

	target, err := h.users.FindByID(id)
	if err != nil {
		h.serverError(w, "user delete lookup", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}

	if err := h.users.Delete(id); err != nil {
		h.serverError(w, "user delete", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Users) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return 0, false
	}
	return id, true
}

func (h *Users) serverError(w http.ResponseWriter, op string, err error) {
	slogError(op, err)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}
