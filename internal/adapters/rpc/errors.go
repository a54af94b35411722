package rpc

import (
	"errors"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/invoke"
	"prism/go-router/internal/registry"
	"prism/go-router/internal/registrystore"
)

func rpcInvalidParams() *rpcError {
	return &rpcError{Code: -32602, Message: "invalid params"}
}

// mapServiceError translates the core error taxonomy into stable negative
// codes, one per sentinel, so clients can branch without string matching.
func mapServiceError(err error) *rpcError {
	code := -32000
	switch {
	case errors.Is(err, registry.ErrInvalidPayload), errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, registry.ErrInvalidSelector), errors.Is(err, identity.ErrInvalidID):
		code = -32041
	case errors.Is(err, registry.ErrUnauthorized):
		code = -32042
	case errors.Is(err, registry.ErrCapacity):
		code = -32043
	case errors.Is(err, registry.ErrSelectorCollision):
		code = -32044
	case errors.Is(err, registry.ErrSelectorNotFound), errors.Is(err, registrystore.ErrNotFound):
		code = -32045
	case errors.Is(err, registry.ErrImmutableSelector):
		code = -32046
	case errors.Is(err, registry.ErrPaused):
		code = -32047
	case errors.Is(err, registrystore.ErrKeyMismatch):
		code = -32048
	case errors.Is(err, registry.ErrCorruptRecord):
		code = -32049
	case errors.Is(err, registrystore.ErrExists):
		code = -32050
	case errors.Is(err, registry.ErrInvalidHandle):
		code = -32051
	case errors.Is(err, invoke.ErrModuleUnavailable):
		code = -32052
	}
	return &rpcError{Code: code, Message: err.Error()}
}
