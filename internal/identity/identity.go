package identity

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// IDSize is the byte length of every registry identity.
const IDSize = 32

var ErrInvalidID = errors.New("invalid identity")

// ID is a 32-byte identity: an authority, a registry record key holder,
// or a routable module address.
type ID [IDSize]byte

// FromBytes copies raw into an ID, rejecting any other length.
func FromBytes(raw []byte) (ID, error) {
	if len(raw) != IDSize {
		return ID{}, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidID, IDSize, len(raw))
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

// Parse decodes the base58 rendering produced by String.
func Parse(s string) (ID, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return FromBytes(raw)
}

func (id ID) String() string {
	return base58.Encode(id[:])
}

func (id ID) IsZero() bool {
	return id == ID{}
}

// Fingerprint is a short log-friendly tag for an ID. It is stable across
// processes so operators can correlate log lines with full addresses.
func (id ID) Fingerprint() string {
	sum := blake2b.Sum256(id[:])
	return base58.Encode(sum[:8])
}

// Handle is one caller-supplied resource reference: an identity plus the
// permission flags the caller asserts for this call. Flags travel with the
// handle unmodified when a call is forwarded.
type Handle struct {
	ID       ID
	Signer   bool
	Writable bool
}
