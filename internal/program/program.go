// Package program is the outer operation entrypoint: it demultiplexes the
// 8-byte operation tag at the front of a raw payload onto the registry
// operations and decodes each operation's fixed-layout arguments.
//
// Handle order follows the dispatch convention: the registry slot handle
// first, the authority (or, for dispatch, the claimed target module) second,
// pass-through handles after that.
package program

import (
	"context"
	"fmt"

	"prism/go-router/internal/cut"
	"prism/go-router/internal/identity"
	"prism/go-router/internal/invoke"
	"prism/go-router/internal/registry"
	"prism/go-router/internal/registrystore"
	"prism/go-router/internal/router"
	"prism/go-router/internal/service"
)

// TagSize is the width of the operation tag ahead of every payload.
const TagSize = 8

// Tag identifies one operation on the surface.
type Tag [TagSize]byte

// Operation tags. Only the first byte discriminates; the rest is padding
// kept for the fixed tag width.
var (
	TagInitialize   = Tag{0x01}
	TagDispatch     = Tag{0x02}
	TagAddModule    = Tag{0x03}
	TagRemoveModule = Tag{0x04}
	TagAddAdmin     = Tag{0x05}
	TagSetPaused    = Tag{0x06}
)

// Program routes tagged payloads onto a service router.
type Program struct {
	svc *service.Router
}

func New(svc *service.Router) *Program {
	return &Program{svc: svc}
}

// Process decodes the tag and arguments of one operation payload and runs
// it. Dispatch returns the invoked module's result; every other operation
// returns an empty result on success.
func (p *Program) Process(ctx context.Context, handles []identity.Handle, data []byte) (invoke.Result, error) {
	if len(data) < TagSize {
		return invoke.Result{}, fmt.Errorf("%w: payload is %d bytes, operation tag needs %d",
			registry.ErrInvalidPayload, len(data), TagSize)
	}
	var tag Tag
	copy(tag[:], data[:TagSize])
	args := data[TagSize:]

	switch tag {
	case TagInitialize:
		return p.initialize(ctx, handles, args)
	case TagDispatch:
		return p.dispatch(ctx, handles, args)
	case TagAddModule:
		return p.addModule(ctx, handles, args)
	case TagRemoveModule:
		return p.removeModule(ctx, handles, args)
	case TagAddAdmin:
		return p.addAdmin(ctx, handles, args)
	case TagSetPaused:
		return p.setPaused(ctx, handles, args)
	}
	return invoke.Result{}, fmt.Errorf("%w: unknown operation tag %x", registry.ErrInvalidPayload, tag)
}

// initialize expects handles [claimed slot, owner] and args owner(32)·bump(1).
// The claimed slot key is taken from the first handle, the way the original
// surface passes it, and must reproduce the derivation for the owner.
func (p *Program) initialize(ctx context.Context, handles []identity.Handle, args []byte) (invoke.Result, error) {
	slot, owner, err := splitHandles(handles)
	if err != nil {
		return invoke.Result{}, err
	}
	a, err := decodeInitializeArgs(args)
	if err != nil {
		return invoke.Result{}, err
	}
	if a.Owner != owner.ID {
		return invoke.Result{}, fmt.Errorf("%w: owner argument %s does not match owner handle %s",
			registry.ErrUnauthorized, a.Owner, owner.ID)
	}
	proof := registrystore.KeyProof{Key: slot.ID, Bump: a.Bump}
	if _, err := p.svc.Init(ctx, owner, proof); err != nil {
		return invoke.Result{}, err
	}
	return invoke.Result{}, nil
}

// dispatch expects handles [registry, target, extras...] and args holding
// the length-prefixed inner payload, selector first.
func (p *Program) dispatch(ctx context.Context, handles []identity.Handle, args []byte) (invoke.Result, error) {
	slot, target, err := splitHandles(handles)
	if err != nil {
		return invoke.Result{}, err
	}
	payload, err := decodeDispatchArgs(args)
	if err != nil {
		return invoke.Result{}, err
	}
	out, _, err := p.svc.Dispatch(ctx, router.Request{
		Registry: slot,
		Module:   target,
		Payload:  payload,
		Extra:    handles[2:],
	})
	return out, err
}

func (p *Program) addModule(ctx context.Context, handles []identity.Handle, args []byte) (invoke.Result, error) {
	slot, authority, err := splitHandles(handles)
	if err != nil {
		return invoke.Result{}, err
	}
	a, err := decodeAddModuleArgs(args)
	if err != nil {
		return invoke.Result{}, err
	}
	err = p.svc.CutAdd(ctx, slot.ID, authority, cut.AddParams{
		ModuleName:   a.ModuleName,
		Target:       a.Target,
		Version:      a.Version,
		Selector:     a.Selector,
		FunctionName: a.FunctionName,
		Immutable:    a.Immutable,
		Namespace:    a.Namespace,
	})
	return invoke.Result{}, err
}

func (p *Program) removeModule(ctx context.Context, handles []identity.Handle, args []byte) (invoke.Result, error) {
	slot, authority, err := splitHandles(handles)
	if err != nil {
		return invoke.Result{}, err
	}
	sel, err := decodeRemoveModuleArgs(args)
	if err != nil {
		return invoke.Result{}, err
	}
	_, err = p.svc.CutRemove(ctx, slot.ID, authority, sel)
	return invoke.Result{}, err
}

func (p *Program) addAdmin(ctx context.Context, handles []identity.Handle, args []byte) (invoke.Result, error) {
	slot, authority, err := splitHandles(handles)
	if err != nil {
		return invoke.Result{}, err
	}
	admin, err := decodeAddAdminArgs(args)
	if err != nil {
		return invoke.Result{}, err
	}
	_, err = p.svc.AdminAdd(ctx, slot.ID, authority, admin)
	return invoke.Result{}, err
}

func (p *Program) setPaused(ctx context.Context, handles []identity.Handle, args []byte) (invoke.Result, error) {
	slot, authority, err := splitHandles(handles)
	if err != nil {
		return invoke.Result{}, err
	}
	a, err := decodeSetPausedArgs(args)
	if err != nil {
		return invoke.Result{}, err
	}
	err = p.svc.PauseSet(ctx, slot.ID, authority, a.Paused, a.Reason)
	return invoke.Result{}, err
}

func splitHandles(handles []identity.Handle) (slot, second identity.Handle, err error) {
	if len(handles) < 2 {
		return identity.Handle{}, identity.Handle{}, fmt.Errorf(
			"%w: operation needs the registry handle and one more, got %d",
			registry.ErrInvalidHandle, len(handles))
	}
	return handles[0], handles[1], nil
}
