package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"prism/go-router/internal/cut"
	"prism/go-router/internal/identity"
	"prism/go-router/internal/registry"
	"prism/go-router/internal/registrystore"
	"prism/go-router/internal/router"
	"prism/go-router/internal/service"
)

// Identities travel as base58 strings, binary payloads as std base64.
// Signer/writable flags are caller-asserted claims; the token gate is the
// trust boundary, signature verification lives upstream of this daemon.

type handleDTO struct {
	ID       string `json:"id"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

func (h handleDTO) toHandle() (identity.Handle, error) {
	id, err := identity.Parse(h.ID)
	if err != nil {
		return identity.Handle{}, err
	}
	return identity.Handle{ID: id, Signer: h.Signer, Writable: h.Writable}, nil
}

type initParams struct {
	Owner handleDTO `json:"owner"`
	Key   string    `json:"key,omitempty"`
	Bump  *uint8    `json:"bump,omitempty"`
}

type dispatchParams struct {
	Registry handleDTO   `json:"registry"`
	Module   handleDTO   `json:"module"`
	Payload  string      `json:"payload"`
	Extra    []handleDTO `json:"extra,omitempty"`
}

type cutAddParams struct {
	Registry     string    `json:"registry"`
	Caller       handleDTO `json:"caller"`
	ModuleName   string    `json:"moduleName"`
	Target       string    `json:"target"`
	Version      uint16    `json:"version,omitempty"`
	Selector     string    `json:"selector"`
	FunctionName string    `json:"functionName"`
	Immutable    bool      `json:"immutable,omitempty"`
	Namespace    string    `json:"namespace,omitempty"`
}

type cutRemoveParams struct {
	Registry string    `json:"registry"`
	Caller   handleDTO `json:"caller"`
	Selector string    `json:"selector"`
}

type adminAddParams struct {
	Registry string    `json:"registry"`
	Caller   handleDTO `json:"caller"`
	Admin    string    `json:"admin"`
}

type pauseSetParams struct {
	Registry string    `json:"registry"`
	Caller   handleDTO `json:"caller"`
	Paused   bool      `json:"paused"`
	Reason   string    `json:"reason,omitempty"`
}

type inspectParams struct {
	Registry string `json:"registry"`
}

func (s *Server) dispatchRegistryRPC(ctx context.Context, method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "registry.init":
		return s.rpcInit(ctx, rawParams)
	case "registry.dispatch":
		return s.rpcDispatch(ctx, rawParams)
	case "registry.cut.add":
		return s.rpcCutAdd(ctx, rawParams)
	case "registry.cut.remove":
		return s.rpcCutRemove(ctx, rawParams)
	case "registry.admin.add":
		return s.rpcAdminAdd(ctx, rawParams)
	case "registry.pause.set":
		return s.rpcPauseSet(ctx, rawParams)
	case "registry.inspect":
		return s.rpcInspect(ctx, rawParams)
	default:
		return nil, nil, false
	}
}

// rpcInit derives the slot for the owner when the caller omits the proof, so
// clients do not need to reimplement the derivation to bootstrap.
func (s *Server) rpcInit(ctx context.Context, rawParams json.RawMessage) (any, *rpcError, bool) {
	var p initParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, rpcInvalidParams(), true
	}
	owner, err := p.Owner.toHandle()
	if err != nil {
		return nil, mapServiceError(err), true
	}

	var proof registrystore.KeyProof
	if p.Key == "" {
		proof, err = registrystore.Derive(owner.ID)
		if err != nil {
			return nil, mapServiceError(err), true
		}
	} else {
		key, err := identity.Parse(p.Key)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		bump := registrystore.CanonicalBump
		if p.Bump != nil {
			bump = *p.Bump
		}
		proof = registrystore.KeyProof{Key: key, Bump: bump}
	}

	key, err := s.svc.Init(ctx, owner, proof)
	if err != nil {
		return nil, mapServiceError(err), true
	}
	return map[string]any{"registry": key.String(), "bump": proof.Bump}, nil, true
}

func (s *Server) rpcDispatch(ctx context.Context, rawParams json.RawMessage) (any, *rpcError, bool) {
	var p dispatchParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, rpcInvalidParams(), true
	}
	reg, err := p.Registry.toHandle()
	if err != nil {
		return nil, mapServiceError(err), true
	}
	mod, err := p.Module.toHandle()
	if err != nil {
		return nil, mapServiceError(err), true
	}
	payload, err := base64.StdEncoding.DecodeString(p.Payload)
	if err != nil {
		return nil, rpcInvalidParams(), true
	}
	extra := make([]identity.Handle, 0, len(p.Extra))
	for _, dto := range p.Extra {
		h, err := dto.toHandle()
		if err != nil {
			return nil, mapServiceError(err), true
		}
		extra = append(extra, h)
	}

	out, res, err := s.svc.Dispatch(ctx, router.Request{
		Registry: reg,
		Module:   mod,
		Payload:  payload,
		Extra:    extra,
	})
	if err != nil {
		return nil, mapServiceError(err), true
	}
	return map[string]any{
		"data":     base64.StdEncoding.EncodeToString(out.Data),
		"selector": res.Selector.String(),
		"function": res.FunctionName,
		"cacheHit": res.CacheHit,
	}, nil, true
}

func (s *Server) rpcCutAdd(ctx context.Context, rawParams json.RawMessage) (any, *rpcError, bool) {
	var p cutAddParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, rpcInvalidParams(), true
	}
	key, caller, rpcErr := parseRegistryCaller(p.Registry, p.Caller)
	if rpcErr != nil {
		return nil, rpcErr, true
	}
	target, err := identity.Parse(p.Target)
	if err != nil {
		return nil, mapServiceError(err), true
	}
	sel, err := registry.ParseSelector(p.Selector)
	if err != nil {
		return nil, mapServiceError(err), true
	}
	var ns registry.Namespace
	if p.Namespace != "" {
		ns, err = registry.NamespaceFromLabel(p.Namespace)
		if err != nil {
			return nil, mapServiceError(err), true
		}
	}
	version := p.Version
	if version == 0 {
		version = 1
	}

	err = s.svc.CutAdd(ctx, key, caller, cut.AddParams{
		ModuleName:   p.ModuleName,
		Target:       target,
		Version:      version,
		Selector:     sel,
		FunctionName: p.FunctionName,
		Immutable:    p.Immutable,
		Namespace:    ns,
	})
	if err != nil {
		return nil, mapServiceError(err), true
	}
	return map[string]any{"selector": sel.String(), "target": target.String()}, nil, true
}

func (s *Server) rpcCutRemove(ctx context.Context, rawParams json.RawMessage) (any, *rpcError, bool) {
	var p cutRemoveParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, rpcInvalidParams(), true
	}
	key, caller, rpcErr := parseRegistryCaller(p.Registry, p.Caller)
	if rpcErr != nil {
		return nil, rpcErr, true
	}
	sel, err := registry.ParseSelector(p.Selector)
	if err != nil {
		return nil, mapServiceError(err), true
	}

	removed, err := s.svc.CutRemove(ctx, key, caller, sel)
	if err != nil {
		return nil, mapServiceError(err), true
	}
	return map[string]any{"selector": sel.String(), "target": removed.Target.String()}, nil, true
}

func (s *Server) rpcAdminAdd(ctx context.Context, rawParams json.RawMessage) (any, *rpcError, bool) {
	var p adminAddParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, rpcInvalidParams(), true
	}
	key, caller, rpcErr := parseRegistryCaller(p.Registry, p.Caller)
	if rpcErr != nil {
		return nil, rpcErr, true
	}
	admin, err := identity.Parse(p.Admin)
	if err != nil {
		return nil, mapServiceError(err), true
	}

	added, err := s.svc.AdminAdd(ctx, key, caller, admin)
	if err != nil {
		return nil, mapServiceError(err), true
	}
	return map[string]any{"admin": admin.String(), "added": added}, nil, true
}

func (s *Server) rpcPauseSet(ctx context.Context, rawParams json.RawMessage) (any, *rpcError, bool) {
	var p pauseSetParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, rpcInvalidParams(), true
	}
	key, caller, rpcErr := parseRegistryCaller(p.Registry, p.Caller)
	if rpcErr != nil {
		return nil, rpcErr, true
	}

	if err := s.svc.PauseSet(ctx, key, caller, p.Paused, p.Reason); err != nil {
		return nil, mapServiceError(err), true
	}
	return map[string]any{"paused": p.Paused}, nil, true
}

func (s *Server) rpcInspect(ctx context.Context, rawParams json.RawMessage) (any, *rpcError, bool) {
	var p inspectParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, rpcInvalidParams(), true
	}
	key, err := identity.Parse(p.Registry)
	if err != nil {
		return nil, mapServiceError(err), true
	}

	view, err := s.svc.Inspect(ctx, key)
	if err != nil {
		return nil, mapServiceError(err), true
	}
	return viewToDTO(view), nil, true
}

func parseRegistryCaller(reg string, caller handleDTO) (identity.ID, identity.Handle, *rpcError) {
	key, err := identity.Parse(reg)
	if err != nil {
		return identity.ID{}, identity.Handle{}, mapServiceError(err)
	}
	h, err := caller.toHandle()
	if err != nil {
		return identity.ID{}, identity.Handle{}, mapServiceError(err)
	}
	return key, h, nil
}

func viewToDTO(v service.View) map[string]any {
	admins := make([]string, 0, len(v.Admins))
	for _, a := range v.Admins {
		admins = append(admins, a.String())
	}
	modules := make([]map[string]any, 0, len(v.Modules))
	for _, m := range v.Modules {
		modules = append(modules, map[string]any{
			"name":    m.Name,
			"address": m.Address.String(),
			"version": m.Version,
			"active":  m.Active,
		})
	}
	selectors := make([]map[string]any, 0, len(v.Selectors))
	for _, m := range v.Selectors {
		entry := map[string]any{
			"selector":  m.Selector.String(),
			"target":    m.Target.String(),
			"function":  m.FunctionName,
			"immutable": m.Immutable,
		}
		if !m.Namespace.IsGlobal() {
			entry["namespace"] = m.Namespace.Label()
		}
		selectors = append(selectors, entry)
	}
	out := map[string]any{
		"registry":       v.Key.String(),
		"owner":          v.Owner.String(),
		"bump":           v.Bump,
		"admins":         admins,
		"modules":        modules,
		"selectors":      selectors,
		"paused":         v.Paused,
		"pauseAuthority": v.PauseAuthority.String(),
	}
	if v.Paused && v.PauseReason != "" {
		out["pauseReason"] = v.PauseReason
	}
	if v.PausedAt != nil {
		out["pausedAt"] = *v.PausedAt
	}
	return out
}
