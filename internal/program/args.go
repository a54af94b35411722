package program

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/registry"
)

// Argument layouts share the record codec's conventions: little-endian
// integers, zero-padded fixed-width names, 0/1 flag bytes. Decoding is
// strict; trailing bytes after the last field reject the whole payload.

// InitializeArgs is owner(32) · bump(1).
type InitializeArgs struct {
	Owner identity.ID
	Bump  uint8
}

// AddModuleArgs is moduleName(32) · target(32) · version(2) · selector(4) ·
// functionName(64) · immutable(1) · namespace(8).
type AddModuleArgs struct {
	ModuleName   string
	Target       identity.ID
	Version      uint16
	Selector     registry.Selector
	FunctionName string
	Immutable    bool
	Namespace    registry.Namespace
}

// SetPausedArgs is paused(1) · reason(64).
type SetPausedArgs struct {
	Paused bool
	Reason string
}

func EncodeInitializeArgs(a InitializeArgs) []byte {
	buf := make([]byte, 0, identity.IDSize+1)
	buf = append(buf, a.Owner[:]...)
	return append(buf, a.Bump)
}

func decodeInitializeArgs(data []byte) (InitializeArgs, error) {
	r := &argReader{buf: data}
	var a InitializeArgs
	var err error
	if a.Owner, err = r.id("owner"); err != nil {
		return InitializeArgs{}, err
	}
	if a.Bump, err = r.byte("bump"); err != nil {
		return InitializeArgs{}, err
	}
	if err := r.done(); err != nil {
		return InitializeArgs{}, err
	}
	return a, nil
}

// EncodeDispatchArgs length-prefixes the inner payload. The prefix lets the
// decoder reject payloads that were truncated in flight.
func EncodeDispatchArgs(payload []byte) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(payload)))
	return append(buf, payload...)
}

func decodeDispatchArgs(data []byte) ([]byte, error) {
	r := &argReader{buf: data}
	b, err := r.take(4, "payload length")
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(b)
	payload, err := r.take(int(n), "payload")
	if err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return payload, nil
}

func EncodeAddModuleArgs(a AddModuleArgs) []byte {
	buf := make([]byte, 0, 143)
	buf = appendPadded(buf, a.ModuleName, registry.MaxModuleNameLen)
	buf = append(buf, a.Target[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, a.Version)
	buf = append(buf, a.Selector[:]...)
	buf = appendPadded(buf, a.FunctionName, registry.MaxFunctionNameLen)
	if a.Immutable {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return append(buf, a.Namespace[:]...)
}

func decodeAddModuleArgs(data []byte) (AddModuleArgs, error) {
	r := &argReader{buf: data}
	var a AddModuleArgs
	var err error
	if a.ModuleName, err = r.padded("module name", registry.MaxModuleNameLen); err != nil {
		return AddModuleArgs{}, err
	}
	if a.Target, err = r.id("target"); err != nil {
		return AddModuleArgs{}, err
	}
	if a.Version, err = r.uint16("version"); err != nil {
		return AddModuleArgs{}, err
	}
	if a.Selector, err = r.selector("selector"); err != nil {
		return AddModuleArgs{}, err
	}
	if a.FunctionName, err = r.padded("function name", registry.MaxFunctionNameLen); err != nil {
		return AddModuleArgs{}, err
	}
	if a.Immutable, err = r.flag("immutable"); err != nil {
		return AddModuleArgs{}, err
	}
	ns, err := r.take(registry.NamespaceSize, "namespace")
	if err != nil {
		return AddModuleArgs{}, err
	}
	copy(a.Namespace[:], ns)
	if err := r.done(); err != nil {
		return AddModuleArgs{}, err
	}
	return a, nil
}

func EncodeRemoveModuleArgs(sel registry.Selector) []byte {
	return append([]byte(nil), sel[:]...)
}

func decodeRemoveModuleArgs(data []byte) (registry.Selector, error) {
	r := &argReader{buf: data}
	sel, err := r.selector("selector")
	if err != nil {
		return registry.Selector{}, err
	}
	if err := r.done(); err != nil {
		return registry.Selector{}, err
	}
	return sel, nil
}

func EncodeAddAdminArgs(admin identity.ID) []byte {
	return append([]byte(nil), admin[:]...)
}

func decodeAddAdminArgs(data []byte) (identity.ID, error) {
	r := &argReader{buf: data}
	admin, err := r.id("admin")
	if err != nil {
		return identity.ID{}, err
	}
	if err := r.done(); err != nil {
		return identity.ID{}, err
	}
	return admin, nil
}

func EncodeSetPausedArgs(a SetPausedArgs) []byte {
	buf := make([]byte, 0, 1+registry.MaxPauseReasonLen)
	if a.Paused {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return appendPadded(buf, a.Reason, registry.MaxPauseReasonLen)
}

func decodeSetPausedArgs(data []byte) (SetPausedArgs, error) {
	r := &argReader{buf: data}
	var a SetPausedArgs
	var err error
	if a.Paused, err = r.flag("paused"); err != nil {
		return SetPausedArgs{}, err
	}
	if a.Reason, err = r.padded("reason", registry.MaxPauseReasonLen); err != nil {
		return SetPausedArgs{}, err
	}
	if err := r.done(); err != nil {
		return SetPausedArgs{}, err
	}
	return a, nil
}

func appendPadded(buf []byte, s string, width int) []byte {
	buf = append(buf, s...)
	for i := len(s); i < width; i++ {
		buf = append(buf, 0)
	}
	return buf
}

type argReader struct {
	buf []byte
	off int
}

func (r *argReader) take(n int, field string) ([]byte, error) {
	if len(r.buf)-r.off < n {
		return nil, fmt.Errorf("%w: truncated at %s", registry.ErrInvalidPayload, field)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *argReader) done() error {
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d trailing bytes after arguments", registry.ErrInvalidPayload, len(r.buf)-r.off)
	}
	return nil
}

func (r *argReader) id(field string) (identity.ID, error) {
	b, err := r.take(identity.IDSize, field)
	if err != nil {
		return identity.ID{}, err
	}
	var id identity.ID
	copy(id[:], b)
	return id, nil
}

func (r *argReader) selector(field string) (registry.Selector, error) {
	b, err := r.take(registry.SelectorSize, field)
	if err != nil {
		return registry.Selector{}, err
	}
	var sel registry.Selector
	copy(sel[:], b)
	return sel, nil
}

func (r *argReader) uint16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *argReader) byte(field string) (uint8, error) {
	b, err := r.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *argReader) flag(field string) (bool, error) {
	b, err := r.take(1, field)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s flag byte %#02x", registry.ErrInvalidPayload, field, b[0])
	}
}

func (r *argReader) padded(field string, width int) (string, error) {
	b, err := r.take(width, field)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i]), nil
	}
	return string(b), nil
}
