package service

import (
	"errors"

	"prism/go-router/internal/invoke"
	"prism/go-router/internal/registry"
	"prism/go-router/internal/registrystore"
)

// outcome maps an operation error to a bounded metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, registry.ErrPaused):
		return "paused"
	case errors.Is(err, registry.ErrSelectorNotFound):
		return "selector_not_found"
	case errors.Is(err, registry.ErrSelectorCollision):
		return "selector_collision"
	case errors.Is(err, registry.ErrImmutableSelector):
		return "immutable_selector"
	case errors.Is(err, registry.ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, registry.ErrInvalidHandle):
		return "invalid_handle"
	case errors.Is(err, registry.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, registry.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, registry.ErrCapacity):
		return "capacity"
	case errors.Is(err, registry.ErrCorruptRecord):
		return "corrupt_record"
	case errors.Is(err, invoke.ErrModuleUnavailable):
		return "module_unavailable"
	case errors.Is(err, registrystore.ErrNotFound):
		return "not_found"
	case errors.Is(err, registrystore.ErrExists):
		return "exists"
	case errors.Is(err, registrystore.ErrKeyMismatch):
		return "key_mismatch"
	default:
		return "error"
	}
}
