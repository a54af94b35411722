package service

import (
	"context"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/registry"
)

// View is a point-in-time copy of one registry, safe to hold after the call.
type View struct {
	Key            identity.ID
	Owner          identity.ID
	Bump           uint8
	Admins         []identity.ID
	Modules        []registry.ModuleMeta
	Selectors      []registry.SelectorMapping
	Paused         bool
	PauseReason    string
	PausedAt       *int64
	PauseAuthority identity.ID
}

// Inspect snapshots the registry at key.
func (r *Router) Inspect(ctx context.Context, key identity.ID) (View, error) {
	m, err := r.registryFor(key)
	if err != nil {
		return View{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	rec := m.state.Record().Clone()

	return View{
		Key:            key,
		Owner:          rec.Owner,
		Bump:           rec.Bump,
		Admins:         rec.Admins,
		Modules:        rec.Modules,
		Selectors:      rec.Selectors,
		Paused:         rec.Paused,
		PauseReason:    rec.PauseReason,
		PausedAt:       rec.PausedAt,
		PauseAuthority: rec.PauseAuthority,
	}, nil
}
