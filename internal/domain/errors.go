package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrResourceNotFound     = errors.New("resource not found")
	ErrNotOwner             = errors.New("resource is not issued to you")
	ErrAlreadyMarked        = errors.New("resource already has a receipt verdict")
	ErrResourceClosed       = errors.New("resource is already closed")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidVerdict       = errors.New("invalid verdict")
	ErrInvalidLifetime      = errors.New("invalid lifetime")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrEmptyType            = errors.New("resource type is required")
	ErrForbidden            = errors.New("not allowed for your role")
	ErrManagerNotFound      = errors.New("manager not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationCorrupt  = errors.New("conversation state is corrupt")
	ErrAllocationConflict   = errors.New("allocation conflict")
)

// RejectionError is a business-rule refusal. It is reported to the actor
// as-is and never retried.
type RejectionError struct {
	Err     error
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func Reject(sentinel error, format string, args ...any) error {
	return &RejectionError{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}

// IsRetryable reports whether err came from the store rather than from a
// business rule or a cancelled caller.
func IsRetryable(err error) bool {
	if err == nil || IsRejection(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
