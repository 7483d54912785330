package db

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("book is not available for borrowing")
	ErrAlreadyBorrowed = errors.New("you have already borrowed this book")
	ErrLimitExceeded   = errors.New("you can only borrow one book at a time")
	ErrAlreadyReturned = errors.New("book has already been returned")
	ErrDuplicateRating = errors.New("you have already rated this book")
	ErrUnauthorized    = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
)

// ValidationError 输入不合法（400）
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }
