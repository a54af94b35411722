// Package invoke hosts handler modules and forwards resolved calls to them.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prism/go-router/internal/identity"
)

var (
	ErrModuleUnavailable = errors.New("module is not available in this host")
	ErrAlreadyRegistered = errors.New("module is already registered")
)

// Call is one forwarded invocation: the full original payload, selector
// prefix included, plus the pass-through handles with their signer and
// writable flags unmodified.
type Call struct {
	Target  identity.ID
	Payload []byte
	Handles []identity.Handle
}

// Result carries the module's reply verbatim.
type Result struct {
	Data []byte
}

// Module is one handler implementation.
type Module interface {
	Invoke(ctx context.Context, call Call) (Result, error)
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func(ctx context.Context, call Call) (Result, error)

func (f ModuleFunc) Invoke(ctx context.Context, call Call) (Result, error) {
	return f(ctx, call)
}

// Invoker forwards a call to the module addressed by Call.Target.
type Invoker interface {
	Invoke(ctx context.Context, call Call) (Result, error)
}

// Host is the in-process module table.
type Host struct {
	mu      sync.RWMutex
	modules map[identity.ID]Module
}

func NewHost() *Host {
	return &Host{modules: make(map[identity.ID]Module)}
}

func (h *Host) Register(id identity.ID, m Module) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.modules[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	h.modules[id] = m
	return nil
}

func (h *Host) Invoke(ctx context.Context, call Call) (Result, error) {
	h.mu.RLock()
	m, ok := h.modules[call.Target]
	h.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrModuleUnavailable, call.Target)
	}
	return m.Invoke(ctx, call)
}
