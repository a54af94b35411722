package router

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/invoke"
	"prism/go-router/internal/registry"
)

func testID(t *testing.T, fill byte) identity.ID {
	t.Helper()
	raw := make([]byte, identity.IDSize)
	for i := range raw {
		raw[i] = fill
	}
	id, err := identity.FromBytes(raw)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return id
}

type capturingInvoker struct {
	call   invoke.Call
	result invoke.Result
	err    error
}

func (c *capturingInvoker) Invoke(_ context.Context, call invoke.Call) (invoke.Result, error) {
	c.call = call
	return c.result, c.err
}

func routedState(t *testing.T, sel registry.Selector, target identity.ID) *registry.State {
	t.Helper()
	rec := registry.NewRecord(testID(t, 0x01), 0xFF)
	m, err := registry.NewSelectorMapping(sel, target, "increment", false)
	if err != nil {
		t.Fatalf("NewSelectorMapping: %v", err)
	}
	rec.Selectors = append(rec.Selectors, m)
	return registry.NewState(rec)
}

func request(target identity.ID, payload []byte) Request {
	return Request{
		Registry: identity.Handle{ID: identity.ID{0xEE}, Writable: true},
		Module:   identity.Handle{ID: target},
		Payload:  payload,
	}
}

func TestDispatchForwardsCallUnchanged(t *testing.T) {
	t.Parallel()

	sel := registry.Selector{1, 2, 3, 4}
	target := testID(t, 0x10)
	st := routedState(t, sel, target)
	inv := &capturingInvoker{result: invoke.Result{Data: []byte{0x2A}}}
	engine := New(inv)

	payload := append(sel[:], 0xCA, 0xFE)
	req := request(target, payload)
	req.Extra = []identity.Handle{
		{ID: testID(t, 0x20), Signer: true, Writable: true},
		{ID: testID(t, 0x21)},
	}

	out, res, err := engine.Dispatch(context.Background(), st, req)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !bytes.Equal(out.Data, []byte{0x2A}) {
		t.Fatalf("result = %x, want the module reply verbatim", out.Data)
	}
	if res.Target != target || res.FunctionName != "increment" || res.Selector != sel {
		t.Fatalf("resolution = %+v", res)
	}
	if inv.call.Target != target {
		t.Fatalf("forwarded target = %s, want %s", inv.call.Target, target)
	}
	if !bytes.Equal(inv.call.Payload, payload) {
		t.Fatalf("forwarded payload = %x, want the full original payload", inv.call.Payload)
	}
	if len(inv.call.Handles) != 2 {
		t.Fatalf("forwarded handles = %d, want 2", len(inv.call.Handles))
	}
	if !inv.call.Handles[0].Signer || !inv.call.Handles[0].Writable || inv.call.Handles[1].Signer {
		t.Fatalf("handle flags altered: %+v", inv.call.Handles)
	}
}

func TestDispatchRequiresWritableRegistryHandle(t *testing.T) {
	t.Parallel()

	sel := registry.Selector{1, 2, 3, 4}
	target := testID(t, 0x10)
	st := routedState(t, sel, target)
	engine := New(&capturingInvoker{})

	req := request(target, sel[:])
	req.Registry.Writable = false
	if _, _, err := engine.Dispatch(context.Background(), st, req); !errors.Is(err, registry.ErrInvalidHandle) {
		t.Fatalf("err = %v, want ErrInvalidHandle", err)
	}
}

func TestDispatchPausedRegistry(t *testing.T) {
	t.Parallel()

	sel := registry.Selector{1, 2, 3, 4}
	target := testID(t, 0x10)
	st := routedState(t, sel, target)
	st.Record().Paused = true
	st.Record().PauseReason = "maintenance"
	inv := &capturingInvoker{}
	engine := New(inv)

	if _, _, err := engine.Dispatch(context.Background(), st, request(target, sel[:])); !errors.Is(err, registry.ErrPaused) {
		t.Fatalf("err = %v, want ErrPaused", err)
	}
	if inv.call.Target != (identity.ID{}) {
		t.Fatal("paused dispatch must not reach the module")
	}
}

func TestDispatchShortPayload(t *testing.T) {
	t.Parallel()

	target := testID(t, 0x10)
	st := routedState(t, registry.Selector{1, 2, 3, 4}, target)
	engine := New(&capturingInvoker{})

	if _, _, err := engine.Dispatch(context.Background(), st, request(target, []byte{1, 2, 3})); !errors.Is(err, registry.ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestDispatchSelectorOnlyPayload(t *testing.T) {
	t.Parallel()

	sel := registry.Selector{1, 2, 3, 4}
	target := testID(t, 0x10)
	st := routedState(t, sel, target)
	engine := New(&capturingInvoker{})

	if _, _, err := engine.Dispatch(context.Background(), st, request(target, sel[:])); err != nil {
		t.Fatalf("four-byte payload must dispatch, got %v", err)
	}
}

func TestDispatchUnknownSelector(t *testing.T) {
	t.Parallel()

	target := testID(t, 0x10)
	st := routedState(t, registry.Selector{1, 2, 3, 4}, target)
	engine := New(&capturingInvoker{})

	bad := registry.Selector{9, 9, 9, 9}
	if _, _, err := engine.Dispatch(context.Background(), st, request(target, bad[:])); !errors.Is(err, registry.ErrSelectorNotFound) {
		t.Fatalf("err = %v, want ErrSelectorNotFound", err)
	}
}

func TestDispatchTargetMismatch(t *testing.T) {
	t.Parallel()

	sel := registry.Selector{1, 2, 3, 4}
	st := routedState(t, sel, testID(t, 0x10))
	inv := &capturingInvoker{}
	engine := New(inv)

	if _, _, err := engine.Dispatch(context.Background(), st, request(testID(t, 0x66), sel[:])); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if inv.call.Target != (identity.ID{}) {
		t.Fatal("mismatched target must not be invoked")
	}
}

func TestResolveReportsCacheHit(t *testing.T) {
	t.Parallel()

	sel := registry.Selector{1, 2, 3, 4}
	target := testID(t, 0x10)
	st := routedState(t, sel, target)
	engine := New(&capturingInvoker{})

	res, err := engine.Resolve(st, request(target, sel[:]))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CacheHit {
		t.Fatal("first resolve must come from the canonical scan")
	}
	res, err = engine.Resolve(st, request(target, sel[:]))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.CacheHit {
		t.Fatal("second resolve must hit the hot cache")
	}
}

func TestDispatchPropagatesModuleError(t *testing.T) {
	t.Parallel()

	sel := registry.Selector{1, 2, 3, 4}
	target := testID(t, 0x10)
	st := routedState(t, sel, target)
	moduleErr := errors.New("cell unavailable")
	engine := New(&capturingInvoker{err: moduleErr})

	if _, _, err := engine.Dispatch(context.Background(), st, request(target, sel[:])); !errors.Is(err, moduleErr) {
		t.Fatalf("err = %v, want the module error", err)
	}
}
