package registry

import (
	"encoding/hex"
	"fmt"
	"strings"

	"prism/go-router/internal/identity"
)

// Hard bounds of the routing table. They match the fixed slot layout in
// codec.go, so raising any of them is a storage format change.
const (
	MaxAdmins    = 10
	MaxModules   = 20
	MaxSelectors = 50

	MaxModuleNameLen   = 32
	MaxFunctionNameLen = 64
	MaxPauseReasonLen  = 64
)

// SelectorSize is the length of the selector prefix every dispatch payload
// starts with.
const SelectorSize = 4

// NamespaceSize is the length of the namespace tag stored per mapping.
const NamespaceSize = 8

// Selector identifies one routable function.
type Selector [SelectorSize]byte

// SelectorFromBytes copies raw into a Selector, rejecting any other length.
func SelectorFromBytes(raw []byte) (Selector, error) {
	if len(raw) != SelectorSize {
		return Selector{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSelector, SelectorSize, len(raw))
	}
	var sel Selector
	copy(sel[:], raw)
	return sel, nil
}

// ParseSelector decodes the hex form produced by Selector.String. A leading
// "0x" is accepted.
func ParseSelector(s string) (Selector, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return Selector{}, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
	}
	return SelectorFromBytes(raw)
}

func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Namespace groups selector mappings under an 8-byte tag. The zero value is
// the global namespace.
type Namespace [NamespaceSize]byte

// NamespaceFromLabel packs a short label into a Namespace, zero padded.
func NamespaceFromLabel(label string) (Namespace, error) {
	if len(label) > NamespaceSize {
		return Namespace{}, fmt.Errorf("%w: namespace label exceeds %d bytes", ErrInvalidName, NamespaceSize)
	}
	if strings.ContainsRune(label, 0) {
		return Namespace{}, fmt.Errorf("%w: namespace label contains NUL byte", ErrInvalidName)
	}
	var ns Namespace
	copy(ns[:], label)
	return ns, nil
}

// Label returns the original label, NUL padding stripped.
func (n Namespace) Label() string {
	return trimPadding(n[:])
}

func (n Namespace) IsGlobal() bool {
	return n == Namespace{}
}

// CheckModuleName validates a module name against the stored bound. Names are
// rejected, never truncated.
func CheckModuleName(name string) error {
	return checkBoundedName("module name", name, MaxModuleNameLen)
}

// CheckFunctionName validates a mapping's function name against the stored
// bound.
func CheckFunctionName(name string) error {
	return checkBoundedName("function name", name, MaxFunctionNameLen)
}

// CheckPauseReason validates a pause reason. Unlike names, an empty reason is
// allowed.
func CheckPauseReason(reason string) error {
	if len(reason) > MaxPauseReasonLen {
		return fmt.Errorf("%w: pause reason exceeds %d bytes", ErrInvalidName, MaxPauseReasonLen)
	}
	if strings.ContainsRune(reason, 0) {
		return fmt.Errorf("%w: pause reason contains NUL byte", ErrInvalidName)
	}
	return nil
}

func checkBoundedName(label, value string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidName, label)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidName, label, maxLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s contains NUL byte", ErrInvalidName, label)
	}
	return nil
}

// ModuleMeta describes one registered handler module.
type ModuleMeta struct {
	Name    string
	Address identity.ID
	Version uint16
	Active  bool
}

// NewModuleMeta builds an active module entry, validating the name bound.
func NewModuleMeta(name string, address identity.ID, version uint16) (ModuleMeta, error) {
	if err := CheckModuleName(name); err != nil {
		return ModuleMeta{}, err
	}
	return ModuleMeta{Name: name, Address: address, Version: version, Active: true}, nil
}

// SelectorMapping binds one selector to the module address that serves it.
type SelectorMapping struct {
	Selector     Selector
	Target       identity.ID
	FunctionName string
	Immutable    bool
	Namespace    Namespace
}

// NewSelectorMapping builds a mapping in the global namespace.
func NewSelectorMapping(sel Selector, target identity.ID, functionName string, immutable bool) (SelectorMapping, error) {
	return NewNamespacedSelectorMapping(Namespace{}, sel, target, functionName, immutable)
}

// NewNamespacedSelectorMapping builds a mapping tagged with ns, validating
// the function name bound.
func NewNamespacedSelectorMapping(ns Namespace, sel Selector, target identity.ID, functionName string, immutable bool) (SelectorMapping, error) {
	if err := CheckFunctionName(functionName); err != nil {
		return SelectorMapping{}, err
	}
	return SelectorMapping{
		Selector:     sel,
		Target:       target,
		FunctionName: functionName,
		Immutable:    immutable,
		Namespace:    ns,
	}, nil
}

// Record is the persistent state of one registry instance.
//
// Admins and Modules only ever grow; Selectors may shrink when a mutable
// mapping is removed. All three lists keep insertion order, and selector
// lookups scan in that order.
type Record struct {
	Owner     identity.ID
	Admins    []identity.ID
	Modules   []ModuleMeta
	Selectors []SelectorMapping

	Bump           uint8
	Paused         bool
	PauseAuthority identity.ID
	PausedAt       *int64
	PauseReason    string

	// Reserved governance hooks. Stored and round-tripped but not consulted
	// by any operation yet.
	Multisig          *identity.ID
	GovernanceRealm   *identity.ID
	GovernanceProgram *identity.ID
}

// NewRecord returns the freshly initialized state: empty tables, unpaused,
// with the owner holding pause authority.
func NewRecord(owner identity.ID, bump uint8) *Record {
	return &Record{
		Owner:          owner,
		Bump:           bump,
		PauseAuthority: owner,
	}
}

func (r *Record) IsOwner(id identity.ID) bool {
	return r.Owner == id
}

func (r *Record) IsAdmin(id identity.ID) bool {
	for _, admin := range r.Admins {
		if admin == id {
			return true
		}
	}
	return false
}

// HasAuthority reports whether id may mutate the routing table or flip the
// pause gate.
func (r *Record) HasAuthority(id identity.ID) bool {
	return r.IsOwner(id) || r.IsAdmin(id)
}

// FindSelector scans the canonical mapping list in insertion order.
func (r *Record) FindSelector(sel Selector) (SelectorMapping, bool) {
	for _, m := range r.Selectors {
		if m.Selector == sel {
			return m, true
		}
	}
	return SelectorMapping{}, false
}

// Clone returns a deep copy that can be mutated independently of r.
func (r *Record) Clone() *Record {
	dup := *r
	dup.Admins = append([]identity.ID(nil), r.Admins...)
	dup.Modules = append([]ModuleMeta(nil), r.Modules...)
	dup.Selectors = append([]SelectorMapping(nil), r.Selectors...)
	dup.PausedAt = cloneInt64(r.PausedAt)
	dup.Multisig = cloneID(r.Multisig)
	dup.GovernanceRealm = cloneID(r.GovernanceRealm)
	dup.GovernanceProgram = cloneID(r.GovernanceProgram)
	return &dup
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	dup := *v
	return &dup
}

func cloneID(id *identity.ID) *identity.ID {
	if id == nil {
		return nil
	}
	dup := *id
	return &dup
}
