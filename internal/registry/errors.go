package registry

import "errors"

var (
	ErrUnauthorized      = errors.New("caller is not authorized")
	ErrCapacity          = errors.New("capacity exceeded")
	ErrSelectorCollision = errors.New("selector already registered")
	ErrSelectorNotFound  = errors.New("selector not found")
	ErrImmutableSelector = errors.New("selector is immutable")
	ErrPaused            = errors.New("registry is paused")
	ErrInvalidPayload    = errors.New("invalid dispatch payload")
	ErrInvalidHandle     = errors.New("invalid account handle")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidSelector   = errors.New("invalid selector")
	ErrCorruptRecord     = errors.New("corrupt registry record")
)
