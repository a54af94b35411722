// Package counter is the reference handler module: u64 counter cells keyed
// by the first forwarded handle, served over four fixed selectors.
package counter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/invoke"
	"prism/go-router/internal/registry"
)

// Well-known selectors served by the module.
var (
	SelectorIncrement = registry.Selector{0x01, 0x02, 0x03, 0x04}
	SelectorDecrement = registry.Selector{0x05, 0x06, 0x07, 0x08}
	SelectorGetValue  = registry.Selector{0x09, 0x0A, 0x0B, 0x0C}
	SelectorReset     = registry.Selector{0x0D, 0x0E, 0x0F, 0x10}
)

var (
	ErrUnknownSelector = errors.New("counter does not serve this selector")
	ErrCellRequired    = errors.New("counter cell handle required")
	ErrCellReadOnly    = errors.New("counter cell handle must be writable")
	ErrOverflow        = errors.New("counter overflow")
	ErrUnderflow       = errors.New("counter underflow")
)

// Route describes one selector the module serves.
type Route struct {
	Selector     registry.Selector
	FunctionName string
}

// Routes lists every selector the module serves, in registration order.
func Routes() []Route {
	return []Route{
		{SelectorIncrement, "increment"},
		{SelectorDecrement, "decrement"},
		{SelectorGetValue, "get_value"},
		{SelectorReset, "reset"},
	}
}

// Module holds the counter cells. The first forwarded handle names the cell;
// mutating selectors require it writable.
type Module struct {
	mu    sync.Mutex
	cells map[identity.ID]uint64
}

func New() *Module {
	return &Module{cells: make(map[identity.ID]uint64)}
}

func (m *Module) Invoke(_ context.Context, call invoke.Call) (invoke.Result, error) {
	if len(call.Payload) != registry.SelectorSize {
		return invoke.Result{}, fmt.Errorf("%w: counter calls carry no arguments, got %d payload bytes",
			registry.ErrInvalidPayload, len(call.Payload))
	}
	var sel registry.Selector
	copy(sel[:], call.Payload)
	if len(call.Handles) == 0 {
		return invoke.Result{}, ErrCellRequired
	}
	cell := call.Handles[0]

	m.mu.Lock()
	defer m.mu.Unlock()
	value := m.cells[cell.ID]

	switch sel {
	case SelectorGetValue:
		return valueResult(value), nil
	case SelectorIncrement:
		if !cell.Writable {
			return invoke.Result{}, ErrCellReadOnly
		}
		if value == math.MaxUint64 {
			return invoke.Result{}, ErrOverflow
		}
		value++
	case SelectorDecrement:
		if !cell.Writable {
			return invoke.Result{}, ErrCellReadOnly
		}
		if value == 0 {
			return invoke.Result{}, ErrUnderflow
		}
		value--
	case SelectorReset:
		if !cell.Writable {
			return invoke.Result{}, ErrCellReadOnly
		}
		value = 0
	default:
		return invoke.Result{}, fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
	}

	m.cells[cell.ID] = value
	return valueResult(value), nil
}

// Value reads a cell without going through dispatch.
func (m *Module) Value(id identity.ID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[id]
}

func valueResult(v uint64) invoke.Result {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return invoke.Result{Data: out}
}
