package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"prism/go-router/internal/identity"
)

// Encoded field widths. Records serialize to a fixed-order little-endian
// layout; strings occupy fixed-width zero-padded slots, so the worst case is
// a compile-time constant a store can provision up front.
const (
	encModuleMetaSize      = MaxModuleNameLen + identity.IDSize + 2 + 1
	encSelectorMappingSize = SelectorSize + identity.IDSize + MaxFunctionNameLen + 1 + NamespaceSize
	encOptionalIDSize      = 1 + identity.IDSize
	encOptionalTimeSize    = 1 + 8

	// MaxEncodedSize is the slot capacity one fully populated record needs.
	MaxEncodedSize = identity.IDSize + // owner
		4 + MaxAdmins*identity.IDSize +
		4 + MaxModules*encModuleMetaSize +
		4 + MaxSelectors*encSelectorMappingSize +
		1 + // bump
		1 + // paused flag
		identity.IDSize + // pause authority
		encOptionalTimeSize +
		MaxPauseReasonLen +
		3*encOptionalIDSize
)

// Encode serializes r. Lists over their declared bound and strings over their
// slot width fail the encode rather than being truncated.
func Encode(r *Record) ([]byte, error) {
	if len(r.Admins) > MaxAdmins {
		return nil, fmt.Errorf("%w: %d admins exceed limit %d", ErrCapacity, len(r.Admins), MaxAdmins)
	}
	if len(r.Modules) > MaxModules {
		return nil, fmt.Errorf("%w: %d modules exceed limit %d", ErrCapacity, len(r.Modules), MaxModules)
	}
	if len(r.Selectors) > MaxSelectors {
		return nil, fmt.Errorf("%w: %d selectors exceed limit %d", ErrCapacity, len(r.Selectors), MaxSelectors)
	}
	if err := CheckPauseReason(r.PauseReason); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, MaxEncodedSize)
	buf = append(buf, r.Owner[:]...)

	buf = appendCount(buf, len(r.Admins))
	for _, admin := range r.Admins {
		buf = append(buf, admin[:]...)
	}

	buf = appendCount(buf, len(r.Modules))
	for i, mod := range r.Modules {
		if len(mod.Name) > MaxModuleNameLen {
			return nil, fmt.Errorf("%w: module %d name exceeds %d bytes", ErrInvalidName, i, MaxModuleNameLen)
		}
		buf = appendPadded(buf, mod.Name, MaxModuleNameLen)
		buf = append(buf, mod.Address[:]...)
		buf = binary.LittleEndian.AppendUint16(buf, mod.Version)
		buf = appendBool(buf, mod.Active)
	}

	buf = appendCount(buf, len(r.Selectors))
	for i, m := range r.Selectors {
		if len(m.FunctionName) > MaxFunctionNameLen {
			return nil, fmt.Errorf("%w: mapping %d function name exceeds %d bytes", ErrInvalidName, i, MaxFunctionNameLen)
		}
		buf = append(buf, m.Selector[:]...)
		buf = append(buf, m.Target[:]...)
		buf = appendPadded(buf, m.FunctionName, MaxFunctionNameLen)
		buf = appendBool(buf, m.Immutable)
		buf = append(buf, m.Namespace[:]...)
	}

	buf = append(buf, r.Bump)
	buf = appendBool(buf, r.Paused)
	buf = append(buf, r.PauseAuthority[:]...)
	if r.PausedAt != nil {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(*r.PausedAt))
	} else {
		buf = append(buf, 0)
	}
	buf = appendPadded(buf, r.PauseReason, MaxPauseReasonLen)
	buf = appendOptionalID(buf, r.Multisig)
	buf = appendOptionalID(buf, r.GovernanceRealm)
	buf = appendOptionalID(buf, r.GovernanceProgram)
	return buf, nil
}

// Decode parses one encoded record. Truncated buffers, counts over their
// bound, malformed flag bytes, and trailing garbage are all rejected.
func Decode(data []byte) (*Record, error) {
	rd := recordReader{buf: data}
	rec := &Record{}

	var err error
	if rec.Owner, err = rd.id("owner"); err != nil {
		return nil, err
	}

	adminCount, err := rd.count("admin", MaxAdmins)
	if err != nil {
		return nil, err
	}
	for i := 0; i < adminCount; i++ {
		admin, err := rd.id("admin")
		if err != nil {
			return nil, err
		}
		rec.Admins = append(rec.Admins, admin)
	}

	moduleCount, err := rd.count("module", MaxModules)
	if err != nil {
		return nil, err
	}
	for i := 0; i < moduleCount; i++ {
		var mod ModuleMeta
		if mod.Name, err = rd.padded("module name", MaxModuleNameLen); err != nil {
			return nil, err
		}
		if mod.Address, err = rd.id("module address"); err != nil {
			return nil, err
		}
		if mod.Version, err = rd.uint16("module version"); err != nil {
			return nil, err
		}
		if mod.Active, err = rd.flag("module active"); err != nil {
			return nil, err
		}
		rec.Modules = append(rec.Modules, mod)
	}

	selectorCount, err := rd.count("selector", MaxSelectors)
	if err != nil {
		return nil, err
	}
	for i := 0; i < selectorCount; i++ {
		var m SelectorMapping
		sel, err := rd.take(SelectorSize, "selector")
		if err != nil {
			return nil, err
		}
		copy(m.Selector[:], sel)
		if m.Target, err = rd.id("mapping target"); err != nil {
			return nil, err
		}
		if m.FunctionName, err = rd.padded("function name", MaxFunctionNameLen); err != nil {
			return nil, err
		}
		if m.Immutable, err = rd.flag("mapping immutable"); err != nil {
			return nil, err
		}
		ns, err := rd.take(NamespaceSize, "mapping namespace")
		if err != nil {
			return nil, err
		}
		copy(m.Namespace[:], ns)
		rec.Selectors = append(rec.Selectors, m)
	}

	bump, err := rd.take(1, "bump")
	if err != nil {
		return nil, err
	}
	rec.Bump = bump[0]
	if rec.Paused, err = rd.flag("paused"); err != nil {
		return nil, err
	}
	if rec.PauseAuthority, err = rd.id("pause authority"); err != nil {
		return nil, err
	}
	hasPausedAt, err := rd.flag("paused at tag")
	if err != nil {
		return nil, err
	}
	if hasPausedAt {
		at, err := rd.int64("paused at")
		if err != nil {
			return nil, err
		}
		rec.PausedAt = &at
	}
	if rec.PauseReason, err = rd.padded("pause reason", MaxPauseReasonLen); err != nil {
		return nil, err
	}
	if rec.Multisig, err = rd.optionalID("multisig"); err != nil {
		return nil, err
	}
	if rec.GovernanceRealm, err = rd.optionalID("governance realm"); err != nil {
		return nil, err
	}
	if rec.GovernanceProgram, err = rd.optionalID("governance program"); err != nil {
		return nil, err
	}

	if rd.off != len(rd.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptRecord, len(rd.buf)-rd.off)
	}
	return rec, nil
}

func appendCount(buf []byte, n int) []byte {
	return binary.LittleEndian.AppendUint32(buf, uint32(n))
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendPadded(buf []byte, s string, width int) []byte {
	buf = append(buf, s...)
	for i := len(s); i < width; i++ {
		buf = append(buf, 0)
	}
	return buf
}

func appendOptionalID(buf []byte, id *identity.ID) []byte {
	if id == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return append(buf, id[:]...)
}

func trimPadding(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

type recordReader struct {
	buf []byte
	off int
}

func (r *recordReader) take(n int, field string) ([]byte, error) {
	if len(r.buf)-r.off < n {
		return nil, fmt.Errorf("%w: truncated at %s", ErrCorruptRecord, field)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *recordReader) id(field string) (identity.ID, error) {
	b, err := r.take(identity.IDSize, field)
	if err != nil {
		return identity.ID{}, err
	}
	var id identity.ID
	copy(id[:], b)
	return id, nil
}

func (r *recordReader) count(field string, limit int) (int, error) {
	b, err := r.take(4, field+" count")
	if err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(b)
	if int64(n) > int64(limit) {
		return 0, fmt.Errorf("%w: %s count %d exceeds limit %d", ErrCorruptRecord, field, n, limit)
	}
	return int(n), nil
}

func (r *recordReader) uint16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *recordReader) int64(field string) (int64, error) {
	b, err := r.take(8, field)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *recordReader) flag(field string) (bool, error) {
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
		return false, fmt.Errorf("%w: %s flag byte %#02x", ErrCorruptRecord, field, b[0])
	}
}

func (r *recordReader) padded(field string, width int) (string, error) {
	b, err := r.take(width, field)
	if err != nil {
		return "", err
	}
	return trimPadding(b), nil
}

func (r *recordReader) optionalID(field string) (*identity.ID, error) {
	present, err := r.flag(field + " tag")
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	id, err := r.id(field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
