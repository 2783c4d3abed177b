package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Micropost related errors
	ErrMicropostNotFound = errors.New("micropost not found")
	ErrCommentNotFound   = errors.New("comment not found")
	ErrAlreadyLiked      = errors.New("micropost already liked")
	ErrNotLiked          = errors.New("micropost not liked")

	// Relationship related errors
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
