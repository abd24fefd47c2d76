// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router wires handlers, middleware, and URL patterns into the
// chi mux served by main.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"notepress/internal/handlers"
	"notepress/internal/middleware"
	"notepress/internal/session"
)

// Deps carries everything the router needs to mount the API.
type Deps struct {
	Sessions *session.Store
	Auth     *handlers.Auth
	Users    *handlers.Users
	Posts    *handlers.Posts
	Upload   *handlers.Upload
}

// New builds the full route tree.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadIdentity(d.Sessions))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)
		r.Post("/send-code", d.Auth.SendCode)
		r.Post("/login-code", d.Auth.LoginWithCode)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me", d.Auth.Me)
			r.Put("/me", d.Auth.UpdateMe)
			r.Post("/password", d.Auth.ChangePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth, middleware.RequireAdmin)
			r.Get("/users", d.Users.List)
			r.Post("/users/add", d.Users.Add)
			r.Put("/users/{id}", d.Users.Update)
			r.Delete("/users/{id}", d.Users.Delete)
		})
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", d.Posts.List)
		r.Get("/{id}", d.Posts.Get)
		r.Get("/{id}/comments", d.Posts.ListComments)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", d.Posts.Create)
			r.Post("/{id}/comments", d.Posts.CreateComment)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth, middleware.RequireAdmin)
			r.Delete("/{id}", d.Posts.Delete)
			r.Delete("/{id}/comments/{commentID}", d.Posts.DeleteComment)
		})
	})

	r.Route("/api/upload", func(r chi.Router) {
		r.Get("/{year}/{month}/{name}", d.Upload.Serve)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", d.Upload.Create)
			r.Get("/", d.Upload.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth, middleware.RequireAdmin)
			r.Delete("/{year}/{month}/{name}", d.Upload.Delete)
		})
	})

	return r
}
