package registry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"prism/go-router/internal/identity"
)

func makeDiverseRecord(t *testing.T) *Record {
	t.Helper()

	owner := testID(t, 0x01)
	rec := NewRecord(owner, 0xFE)
	rec.Admins = append(rec.Admins, testID(t, 0x02), testID(t, 0x03))

	counter, err := NewModuleMeta("counter", testID(t, 0x10), 1)
	if err != nil {
		t.Fatalf("NewModuleMeta: %v", err)
	}
	vault, err := NewModuleMeta("vault", testID(t, 0x11), 3)
	if err != nil {
		t.Fatalf("NewModuleMeta: %v", err)
	}
	vault.Active = false
	rec.Modules = append(rec.Modules, counter, vault)

	ns, err := NamespaceFromLabel("counter")
	if err != nil {
		t.Fatalf("NamespaceFromLabel: %v", err)
	}
	m1, err := NewSelectorMapping(Selector{1, 2, 3, 4}, counter.Address, "increment", false)
	if err != nil {
		t.Fatalf("NewSelectorMapping: %v", err)
	}
	m2, err := NewNamespacedSelectorMapping(ns, Selector{5, 6, 7, 8}, counter.Address, "decrement", true)
	if err != nil {
		t.Fatalf("NewNamespacedSelectorMapping: %v", err)
	}
	m3, err := NewSelectorMapping(Selector{9, 10, 11, 12}, vault.Address, "get_value", false)
	if err != nil {
		t.Fatalf("NewSelectorMapping: %v", err)
	}
	rec.Selectors = append(rec.Selectors, m1, m2, m3)

	rec.Paused = true
	rec.PauseReason = "maintenance window"
	at := int64(1755900000)
	rec.PausedAt = &at
	rec.PauseAuthority = testID(t, 0x02)
	multisig := testID(t, 0x20)
	rec.Multisig = &multisig
	realm := testID(t, 0x21)
	rec.GovernanceRealm = &realm
	return rec
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	rec := makeDiverseRecord(t)
	enc, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(rec, dec) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", dec, rec)
	}
}

func TestEncodeEmptyRecordLayout(t *testing.T) {
	t.Parallel()

	owner := testID(t, 0xAA)
	rec := NewRecord(owner, 0xFF)
	enc, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// owner + three zero counts + bump + paused + authority + absent
	// paused-at + reason slot + three absent option tags.
	wantLen := identity.IDSize + 3*4 + 1 + 1 + identity.IDSize + 1 + MaxPauseReasonLen + 3
	if len(enc) != wantLen {
		t.Fatalf("len = %d, want %d", len(enc), wantLen)
	}
	if !bytes.Equal(enc[:identity.IDSize], owner[:]) {
		t.Fatal("owner bytes must lead the layout")
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(rec, dec) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", dec, rec)
	}
}

func TestFullRecordHitsMaxEncodedSize(t *testing.T) {
	t.Parallel()

	rec := NewRecord(testID(t, 0x01), 0xFF)
	for i := 0; i < MaxAdmins; i++ {
		rec.Admins = append(rec.Admins, testID(t, byte(0x30+i)))
	}
	for i := 0; i < MaxModules; i++ {
		meta, err := NewModuleMeta(strings.Repeat("m", MaxModuleNameLen), testID(t, byte(0x60+i)), uint16(i))
		if err != nil {
			t.Fatalf("NewModuleMeta: %v", err)
		}
		rec.Modules = append(rec.Modules, meta)
	}
	for i := 0; i < MaxSelectors; i++ {
		m, err := NewSelectorMapping(Selector{byte(i), 0, 0, 1}, testID(t, 0x02), strings.Repeat("f", MaxFunctionNameLen), i%2 == 0)
		if err != nil {
			t.Fatalf("NewSelectorMapping: %v", err)
		}
		rec.Selectors = append(rec.Selectors, m)
	}
	rec.Paused = true
	rec.PauseReason = strings.Repeat("r", MaxPauseReasonLen)
	at := int64(1)
	rec.PausedAt = &at
	id := testID(t, 0x04)
	rec.Multisig = &id
	rec.GovernanceRealm = &id
	rec.GovernanceProgram = &id

	enc, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(enc) != MaxEncodedSize {
		t.Fatalf("len = %d, want MaxEncodedSize %d", len(enc), MaxEncodedSize)
	}
	if _, err := Decode(enc); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestDecodeRejectsEveryTruncation(t *testing.T) {
	t.Parallel()

	enc, err := Encode(makeDiverseRecord(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < len(enc); i++ {
		if _, err := Decode(enc[:i]); !errors.Is(err, ErrCorruptRecord) {
			t.Fatalf("Decode(enc[:%d]) err = %v, want ErrCorruptRecord", i, err)
		}
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	t.Parallel()

	enc, err := Encode(makeDiverseRecord(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(append(enc, 0x00)); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestDecodeRejectsOverBoundCounts(t *testing.T) {
	t.Parallel()

	enc, err := Encode(NewRecord(testID(t, 0x01), 0xFF))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	bad := append([]byte(nil), enc...)
	binary.LittleEndian.PutUint32(bad[identity.IDSize:], MaxAdmins+1)
	if _, err := Decode(bad); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestDecodeRejectsMalformedFlagByte(t *testing.T) {
	t.Parallel()

	enc, err := Encode(NewRecord(testID(t, 0x01), 0xFF))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	pausedOff := identity.IDSize + 3*4 + 1
	bad := append([]byte(nil), enc...)
	bad[pausedOff] = 0x02
	if _, err := Decode(bad); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestEncodeRejectsOverCapacityLists(t *testing.T) {
	t.Parallel()

	rec := NewRecord(testID(t, 0x01), 0xFF)
	for i := 0; i <= MaxAdmins; i++ {
		rec.Admins = append(rec.Admins, testID(t, byte(i+1)))
	}
	if _, err := Encode(rec); !errors.Is(err, ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
}

func TestEncodeRejectsOverlongStrings(t *testing.T) {
	t.Parallel()

	rec := NewRecord(testID(t, 0x01), 0xFF)
	rec.Modules = append(rec.Modules, ModuleMeta{
		Name:    strings.Repeat("n", MaxModuleNameLen+1),
		Address: testID(t, 0x02),
	})
	if _, err := Encode(rec); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("module name err = %v, want ErrInvalidName", err)
	}

	rec = NewRecord(testID(t, 0x01), 0xFF)
	rec.PauseReason = strings.Repeat("r", MaxPauseReasonLen+1)
	if _, err := Encode(rec); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("pause reason err = %v, want ErrInvalidName", err)
	}
}

func drawIDRapid(rt *rapid.T, label string) identity.ID {
	raw := rapid.SliceOfN(rapid.Byte(), identity.IDSize, identity.IDSize).Draw(rt, label)
	var id identity.ID
	copy(id[:], raw)
	return id
}

func TestRecordCodecRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rec := &Record{
			Owner: drawIDRapid(rt, "owner"),
			Bump:  byte(rapid.IntRange(0, 255).Draw(rt, "bump")),
		}

		adminCount := rapid.IntRange(0, MaxAdmins).Draw(rt, "adminCount")
		for i := 0; i < adminCount; i++ {
			rec.Admins = append(rec.Admins, drawIDRapid(rt, fmt.Sprintf("admin%d", i)))
		}

		moduleCount := rapid.IntRange(0, MaxModules).Draw(rt, "moduleCount")
		for i := 0; i < moduleCount; i++ {
			rec.Modules = append(rec.Modules, ModuleMeta{
				Name:    rapid.StringMatching(`[a-zA-Z0-9_]{1,32}`).Draw(rt, fmt.Sprintf("moduleName%d", i)),
				Address: drawIDRapid(rt, fmt.Sprintf("moduleAddr%d", i)),
				Version: uint16(rapid.IntRange(0, 65535).Draw(rt, fmt.Sprintf("moduleVersion%d", i))),
				Active:  rapid.Bool().Draw(rt, fmt.Sprintf("moduleActive%d", i)),
			})
		}

		selectorCount := rapid.IntRange(0, MaxSelectors).Draw(rt, "selectorCount")
		for i := 0; i < selectorCount; i++ {
			var sel Selector
			copy(sel[:], rapid.SliceOfN(rapid.Byte(), SelectorSize, SelectorSize).Draw(rt, fmt.Sprintf("selector%d", i)))
			var ns Namespace
			copy(ns[:], rapid.SliceOfN(rapid.Byte(), NamespaceSize, NamespaceSize).Draw(rt, fmt.Sprintf("namespace%d", i)))
			rec.Selectors = append(rec.Selectors, SelectorMapping{
				Selector:     sel,
				Target:       drawIDRapid(rt, fmt.Sprintf("target%d", i)),
				FunctionName: rapid.StringMatching(`[a-zA-Z0-9_]{1,64}`).Draw(rt, fmt.Sprintf("functionName%d", i)),
				Immutable:    rapid.Bool().Draw(rt, fmt.Sprintf("immutable%d", i)),
				Namespace:    ns,
			})
		}

		rec.Paused = rapid.Bool().Draw(rt, "paused")
		rec.PauseAuthority = drawIDRapid(rt, "pauseAuthority")
		rec.PauseReason = rapid.StringMatching(`[a-z ]{0,64}`).Draw(rt, "pauseReason")
		if rapid.Bool().Draw(rt, "hasPausedAt") {
			at := rapid.Int64().Draw(rt, "pausedAt")
			rec.PausedAt = &at
		}
		if rapid.Bool().Draw(rt, "hasMultisig") {
			id := drawIDRapid(rt, "multisig")
			rec.Multisig = &id
		}
		if rapid.Bool().Draw(rt, "hasRealm") {
			id := drawIDRapid(rt, "realm")
			rec.GovernanceRealm = &id
		}
		if rapid.Bool().Draw(rt, "hasGovProgram") {
			id := drawIDRapid(rt, "govProgram")
			rec.GovernanceProgram = &id
		}

		enc, err := Encode(rec)
		if err != nil {
			rt.Fatalf("Encode: %v", err)
		}
		if len(enc) > MaxEncodedSize {
			rt.Fatalf("encoded size %d exceeds MaxEncodedSize %d", len(enc), MaxEncodedSize)
		}
		dec, err := Decode(enc)
		if err != nil {
			rt.Fatalf("Decode: %v", err)
		}
		if !reflect.DeepEqual(rec, dec) {
			rt.Fatalf("round trip mismatch:\n got %+v\nwant %+v", dec, rec)
		}
		reenc, err := Encode(dec)
		if err != nil {
			rt.Fatalf("re-Encode: %v", err)
		}
		if !bytes.Equal(enc, reenc) {
			rt.Fatalf("re-encode not byte stable")
		}
	})
}
