// Package service provides business logic for the application.
package service

import (
	"errors"
	"log/slog"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrTooManyInterests   = errors.New("too many interests")

	ErrCourseNotFound = errors.New("course not found")
	ErrSlugTaken      = errors.New("course slug already exists")
	ErrInvalidTitle   = errors.New("course title must be 3 to 200 characters")
	ErrInvalidSlug    = errors.New("course slug cannot be derived from title")
	ErrInvalidLevel   = errors.New("invalid course level")
	ErrInvalidSort    = errors.New("invalid sort order")
	ErrInvalidCursor  = errors.New("invalid pagination cursor")
	ErrTooManyTags    = errors.New("too many tags")
	ErrInvalidWindow  = errors.New("invalid date range")

	ErrAlreadyEnrolled = errors.New("already enrolled in course")
	ErrNotEnrolled     = errors.New("not enrolled in course")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	ErrInvalidStatus   = errors.New("invalid enrollment status")
)

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}
