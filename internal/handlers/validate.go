package handlers

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits for user and note fields.
const (
	minPasswordLen = 8
	maxUsernameLen = 50
	maxTitleLen    = 300
	maxContentLen  = 100_000
	maxTagsLen     = 500
	maxCommentLen  = 2_000
)

// validatePassword enforces the password policy: minimum length, at least
// one lowercase letter, one uppercase letter, and one digit. Returns the
// first failure as a client-facing message, or "" when the password passes.
func validatePassword(password string) string {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return "Password must be at least 8 characters."
	}
	var hasLower, hasUpper, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasLower {
		return "Password must contain a lowercase letter."
	}
	if !hasUpper {
		return "Password must contain an uppercase letter."
	}
	if !hasDigit {
		return "Password must contain a digit."
	}
	return ""
}

// validateUsername checks the username shape.
func validateUsername(username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return "Username is required."
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return "Username is too long (max 50 characters)."
	}
	return ""
}

// validateEmail performs a minimal shape check; the mail provider is the
// real arbiter of deliverability.
func validateEmail(email string) string {
	if email == "" {
		return "Email is required."
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "Email address is not valid."
	}
	return ""
}

// validateNote checks note creation inputs and returns the first error found.
func validateNote(title, content, tags string) string {
	if strings.TrimSpace(title) == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if strings.TrimSpace(content) == "" {
		return "Content is required."
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "Content is too long (max 100,000 characters)."
	}
	if utf8.RuneCountInString(tags) > maxTagsLen {
		return "Tags are too long (max 500 characters)."
	}
	return ""
}

// validateComment checks comment content.
func validateComment(content string) string {
	if strings.TrimSpace(content) == "" {
		return "Comment content is required."
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "Comment is too long (max 2,000 characters)."
	}
	return ""
}

// optionalString maps "" to nil for nullable columns.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
