// Package service orchestrates registry operations end to end: it owns the
// in-memory states, serializes access per registry, persists every mutation
// before exposing it, and forwards dispatches to hosted modules.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prism/go-router/internal/cut"
	"prism/go-router/internal/identity"
	"prism/go-router/internal/invoke"
	"prism/go-router/internal/pause"
	"prism/go-router/internal/platform/metrics"
	"prism/go-router/internal/registry"
	"prism/go-router/internal/registrystore"
	"prism/go-router/internal/router"
)

// Options configure a Router. Store and Host are required.
type Options struct {
	Store  *registrystore.Store
	Host   invoke.Invoker
	Logger *slog.Logger
	Now    func() time.Time
}

// Router is the operation surface over every registry this host serves.
//
// Mutations run on a clone of the record: transition, persist, then swap the
// clone in under the registry's write lock. A failure on any step leaves both
// the persisted slot and the served state byte-identical to before the call.
// Dispatch resolves under the read lock and invokes the module after
// releasing it, so a module that dispatches again cannot deadlock.
type Router struct {
	store  *registrystore.Store
	engine *router.Engine
	log    *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	registries map[identity.ID]*managedRegistry
}

type managedRegistry struct {
	mu    sync.RWMutex
	state *registry.State
}

func New(opts Options) (*Router, error) {
	if opts.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if opts.Host == nil {
		return nil, errors.New("service: module host is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Router{
		store:      opts.Store,
		engine:     router.New(opts.Host),
		log:        log,
		now:        now,
		registries: make(map[identity.ID]*managedRegistry),
	}, nil
}

// Init creates the registry slot for owner and starts serving it. The owner
// must sign, and the proof must reproduce the slot derivation.
func (r *Router) Init(ctx context.Context, owner identity.Handle, proof registrystore.KeyProof) (identity.ID, error) {
	if !owner.Signer {
		err := fmt.Errorf("%w: owner must sign initialization", registry.ErrUnauthorized)
		metrics.RecordMutation("init", outcome(err))
		return identity.ID{}, err
	}
	rec, err := r.store.Initialize(owner.ID, proof)
	if err != nil {
		metrics.RecordMutation("init", outcome(err))
		r.log.Error("registry init failed", "owner", owner.ID, "err", err)
		return identity.ID{}, err
	}

	r.mu.Lock()
	if _, ok := r.registries[proof.Key]; !ok {
		r.registries[proof.Key] = &managedRegistry{state: registry.NewState(rec)}
	}
	r.mu.Unlock()

	metrics.RecordMutation("init", "ok")
	r.log.Info("registry initialized", "registry", proof.Key, "owner", owner.ID, "bump", proof.Bump)
	return proof.Key, nil
}

// Dispatch resolves the payload's selector in the registry named by the
// request and forwards the call to the claimed module.
func (r *Router) Dispatch(ctx context.Context, req router.Request) (invoke.Result, router.Resolution, error) {
	start := r.now()

	m, err := r.registryFor(req.Registry.ID)
	if err != nil {
		metrics.RecordDispatch(outcome(err), false, r.now().Sub(start))
		return invoke.Result{}, router.Resolution{}, err
	}

	m.mu.RLock()
	res, err := r.engine.Resolve(m.state, req)
	m.mu.RUnlock()
	if err != nil {
		metrics.RecordDispatch(outcome(err), res.CacheHit, r.now().Sub(start))
		r.log.Warn("dispatch rejected", "registry", req.Registry.ID, "selector", res.Selector.String(), "err", err)
		return invoke.Result{}, res, err
	}

	out, err := r.engine.Forward(ctx, res, req)
	elapsed := r.now().Sub(start)
	metrics.RecordDispatch(outcome(err), res.CacheHit, elapsed)
	if err != nil {
		r.log.Error("dispatch failed in module",
			"registry", req.Registry.ID, "selector", res.Selector.String(),
			"target", res.Target, "err", err)
		return invoke.Result{}, res, err
	}
	r.log.Info("dispatch served",
		"registry", req.Registry.ID, "selector", res.Selector.String(),
		"function", res.FunctionName, "target", res.Target,
		"cache_hit", res.CacheHit, "latency_ms", elapsed.Milliseconds())
	return out, res, nil
}

// CutAdd registers a module and its selector mapping.
func (r *Router) CutAdd(ctx context.Context, key identity.ID, caller identity.Handle, p cut.AddParams) error {
	err := r.mutate(key, "cut_add", func(rec *registry.Record) error {
		return cut.AddModule(rec, caller, p)
	}, nil)
	if err != nil {
		return err
	}
	r.log.Info("module added",
		"registry", key, "module", p.ModuleName, "target", p.Target,
		"selector", p.Selector.String(), "function", p.FunctionName,
		"immutable", p.Immutable)
	return nil
}

// CutRemove deletes the mapping for sel and evicts it from the hot cache in
// the same critical section, so no later dispatch can see the dead route.
func (r *Router) CutRemove(ctx context.Context, key identity.ID, caller identity.Handle, sel registry.Selector) (registry.SelectorMapping, error) {
	var removed registry.SelectorMapping
	err := r.mutate(key, "cut_remove", func(rec *registry.Record) error {
		m, err := cut.RemoveModule(rec, caller, sel)
		if err != nil {
			return err
		}
		removed = m
		return nil
	}, func(st *registry.State) {
		st.EvictSelector(sel)
	})
	if err != nil {
		return registry.SelectorMapping{}, err
	}
	r.log.Info("module route removed", "registry", key, "selector", sel.String(), "target", removed.Target)
	return removed, nil
}

// AdminAdd grants admin rights; only the owner may call it.
func (r *Router) AdminAdd(ctx context.Context, key identity.ID, caller identity.Handle, admin identity.ID) (bool, error) {
	var grew bool
	err := r.mutate(key, "admin_add", func(rec *registry.Record) error {
		added, err := cut.AddAdmin(rec, caller, admin)
		if err != nil {
			return err
		}
		grew = added
		return nil
	}, nil)
	if err != nil {
		return false, err
	}
	r.log.Info("admin granted", "registry", key, "admin", admin, "grew", grew)
	return grew, nil
}

// PauseSet flips the pause gate.
func (r *Router) PauseSet(ctx context.Context, key identity.ID, caller identity.Handle, paused bool, reason string) error {
	now := r.now()
	err := r.mutate(key, "pause_set", func(rec *registry.Record) error {
		return pause.SetPaused(rec, caller, paused, reason, now)
	}, nil)
	if err != nil {
		return err
	}
	r.log.Info("pause gate set", "registry", key, "paused", paused, "reason", reason)
	return nil
}

// mutate runs fn on a clone of the record, persists the clone, and only then
// swaps it in. after runs under the same write lock, for cache maintenance
// that must be atomic with the swap.
func (r *Router) mutate(key identity.ID, op string, fn func(*registry.Record) error, after func(*registry.State)) error {
	m, err := r.registryFor(key)
	if err != nil {
		metrics.RecordMutation(op, outcome(err))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dup := m.state.Record().Clone()
	if err := fn(dup); err != nil {
		metrics.RecordMutation(op, outcome(err))
		r.log.Warn("mutation rejected", "registry", key, "op", op, "err", err)
		return err
	}
	if err := r.store.Save(key, dup); err != nil {
		metrics.RecordMutation(op, outcome(err))
		r.log.Error("mutation persist failed", "registry", key, "op", op, "err", err)
		return err
	}
	m.state.Replace(dup)
	if after != nil {
		after(m.state)
	}
	metrics.RecordMutation(op, "ok")
	return nil
}

// registryFor returns the managed state for key, loading it from the store
// on first use. The load happens outside the map lock; a racing loader keeps
// the first inserted state.
func (r *Router) registryFor(key identity.ID) (*managedRegistry, error) {
	r.mu.Lock()
	if m, ok := r.registries[key]; ok {
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	rec, err := r.store.Load(key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.registries[key]; ok {
		return m, nil
	}
	m := &managedRegistry{state: registry.NewState(rec)}
	r.registries[key] = m
	return m, nil
}
