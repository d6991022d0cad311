package session

import "errors"

// Sentinel errors for the session controller.
var (
	ErrEmptyBadge        = errors.New("badge code is empty")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrOperationNotFound = errors.New("operation not found in catalog")
	ErrIncompleteBinding = errors.New("operation binding is incomplete")
	ErrAlreadyOpen       = errors.New("open record already exists for this post and employee")
	ErrRecordGone        = errors.New("record is no longer open")
	ErrInvalidQuantity   = errors.New("quantity must be a non-negative integer")
	ErrBadgeMismatch     = errors.New("badge does not match the operator who opened the record")
)
