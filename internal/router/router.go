// Package router implements the dispatch engine: resolve the selector prefix
// of a payload against a registry, validate the claimed target module, and
// forward the call unchanged.
package router

import (
	"context"
	"fmt"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/invoke"
	"prism/go-router/internal/registry"
)

// Request is one dispatch attempt. Payload starts with the selector and is
// forwarded whole; Extra handles pass through to the module with their flags
// unmodified.
type Request struct {
	Registry identity.Handle
	Module   identity.Handle
	Payload  []byte
	Extra    []identity.Handle
}

// Resolution reports how a dispatch resolved, for logging and metrics.
type Resolution struct {
	Selector     registry.Selector
	Target       identity.ID
	FunctionName string
	CacheHit     bool
}

// Engine forwards resolved calls through an Invoker.
type Engine struct {
	host invoke.Invoker
}

func New(host invoke.Invoker) *Engine {
	return &Engine{host: host}
}

// Resolve runs the checks that need the registry state: the pause gate, the
// payload shape, the selector lookup, and the claimed target. It does not
// touch the module, so callers may hold a shared registry lock around it.
func (e *Engine) Resolve(st *registry.State, req Request) (Resolution, error) {
	if !req.Registry.Writable {
		return Resolution{}, fmt.Errorf("%w: registry handle must be writable", registry.ErrInvalidHandle)
	}
	rec := st.Record()
	if rec.Paused {
		if rec.PauseReason != "" {
			return Resolution{}, fmt.Errorf("%w: %s", registry.ErrPaused, rec.PauseReason)
		}
		return Resolution{}, registry.ErrPaused
	}
	if len(req.Payload) < registry.SelectorSize {
		return Resolution{}, fmt.Errorf("%w: payload is %d bytes, selector needs %d",
			registry.ErrInvalidPayload, len(req.Payload), registry.SelectorSize)
	}
	var sel registry.Selector
	copy(sel[:], req.Payload[:registry.SelectorSize])

	m, cached, ok := st.Resolve(sel)
	if !ok {
		return Resolution{Selector: sel}, fmt.Errorf("%w: %s", registry.ErrSelectorNotFound, sel)
	}
	if m.Target != req.Module.ID {
		return Resolution{Selector: sel, CacheHit: cached}, fmt.Errorf(
			"%w: module handle %s does not match resolved target %s",
			registry.ErrUnauthorized, req.Module.ID, m.Target)
	}
	return Resolution{
		Selector:     sel,
		Target:       m.Target,
		FunctionName: m.FunctionName,
		CacheHit:     cached,
	}, nil
}

// Forward hands the call to the resolved module. The module sees the entire
// original payload and the extra handles exactly as the caller supplied them.
func (e *Engine) Forward(ctx context.Context, res Resolution, req Request) (invoke.Result, error) {
	return e.host.Invoke(ctx, invoke.Call{
		Target:  res.Target,
		Payload: req.Payload,
		Handles: req.Extra,
	})
}

// Dispatch resolves and forwards in one step. Callers that serialize access
// to the registry state should instead Resolve under their read lock and
// Forward after releasing it, so a module that re-enters dispatch cannot
// deadlock.
func (e *Engine) Dispatch(ctx context.Context, st *registry.State, req Request) (invoke.Result, Resolution, error) {
	res, err := e.Resolve(st, req)
	if err != nil {
		return invoke.Result{}, res, err
	}
	out, err := e.Forward(ctx, res, req)
	return out, res, err
}
