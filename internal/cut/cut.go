// Package cut implements the routing-table mutations: registering a module
// with its selector, removing a mutable selector, and granting admin rights.
// Operations are pure transitions on a record; persistence and locking belong
// to the caller.
package cut

import (
	"fmt"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/registry"
)

// AddParams describes one module registration. Version is free-form metadata
// carried alongside the module entry.
type AddParams struct {
	ModuleName   string
	Target       identity.ID
	Version      uint16
	Selector     registry.Selector
	FunctionName string
	Immutable    bool
	Namespace    registry.Namespace
}

// AddModule appends a module entry and its selector mapping. Every check runs
// before the first append, so a failed call leaves rec untouched.
func AddModule(rec *registry.Record, caller identity.Handle, p AddParams) error {
	if !caller.Signer {
		return fmt.Errorf("%w: caller must sign", registry.ErrUnauthorized)
	}
	if !rec.HasAuthority(caller.ID) {
		return fmt.Errorf("%w: %s", registry.ErrUnauthorized, caller.ID)
	}
	if len(rec.Modules) >= registry.MaxModules {
		return fmt.Errorf("%w: module list is full at %d", registry.ErrCapacity, registry.MaxModules)
	}
	if len(rec.Selectors) >= registry.MaxSelectors {
		return fmt.Errorf("%w: selector list is full at %d", registry.ErrCapacity, registry.MaxSelectors)
	}
	if existing, ok := rec.FindSelector(p.Selector); ok {
		return fmt.Errorf("%w: %s already routes to %s", registry.ErrSelectorCollision, p.Selector, existing.Target)
	}
	meta, err := registry.NewModuleMeta(p.ModuleName, p.Target, p.Version)
	if err != nil {
		return err
	}
	mapping, err := registry.NewNamespacedSelectorMapping(p.Namespace, p.Selector, p.Target, p.FunctionName, p.Immutable)
	if err != nil {
		return err
	}
	rec.Modules = append(rec.Modules, meta)
	rec.Selectors = append(rec.Selectors, mapping)
	return nil
}

// RemoveModule deletes the mapping for sel and returns it so the caller can
// evict derived state. The module list is append-only and stays untouched;
// immutable mappings cannot be removed.
func RemoveModule(rec *registry.Record, caller identity.Handle, sel registry.Selector) (registry.SelectorMapping, error) {
	if !caller.Signer {
		return registry.SelectorMapping{}, fmt.Errorf("%w: caller must sign", registry.ErrUnauthorized)
	}
	if !rec.HasAuthority(caller.ID) {
		return registry.SelectorMapping{}, fmt.Errorf("%w: %s", registry.ErrUnauthorized, caller.ID)
	}
	m, ok := rec.FindSelector(sel)
	if !ok {
		return registry.SelectorMapping{}, fmt.Errorf("%w: %s", registry.ErrSelectorNotFound, sel)
	}
	if m.Immutable {
		return registry.SelectorMapping{}, fmt.Errorf("%w: %s", registry.ErrImmutableSelector, sel)
	}
	for i := range rec.Selectors {
		if rec.Selectors[i].Selector == sel {
			rec.Selectors = append(rec.Selectors[:i], rec.Selectors[i+1:]...)
			break
		}
	}
	return m, nil
}

// AddAdmin grants admin rights. Only the owner may grant; granting to an
// existing admin is a no-op and the second return reports whether the set
// actually grew. The capacity check runs first, so a full admin list fails
// even for an already-present admin.
func AddAdmin(rec *registry.Record, caller identity.Handle, admin identity.ID) (bool, error) {
	if !caller.Signer {
		return false, fmt.Errorf("%w: caller must sign", registry.ErrUnauthorized)
	}
	if !rec.IsOwner(caller.ID) {
		return false, fmt.Errorf("%w: only the owner may grant admin rights", registry.ErrUnauthorized)
	}
	if len(rec.Admins) >= registry.MaxAdmins {
		return false, fmt.Errorf("%w: admin list is full at %d", registry.ErrCapacity, registry.MaxAdmins)
	}
	if rec.IsAdmin(admin) {
		return false, nil
	}
	rec.Admins = append(rec.Admins, admin)
	return true, nil
}
