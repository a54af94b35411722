package registrystore

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"prism/go-router/internal/identity"
)

// hkdfInfoSlot tags slot-key derivation so other derivations from the same
// owner material cannot collide with it.
const hkdfInfoSlot = "prism/registry/state/v1"

// CanonicalBump is the bump every fresh derivation uses. The bump is stored
// in the record and must reproduce the slot key on later operations.
const CanonicalBump uint8 = 0xFF

// KeyProof carries the slot key and bump a caller claims for an owner.
// Initialize re-derives the key and rejects proofs that do not match.
type KeyProof struct {
	Key  identity.ID
	Bump uint8
}

// Derive computes the canonical slot key for owner.
func Derive(owner identity.ID) (KeyProof, error) {
	key, err := DeriveWithBump(owner, CanonicalBump)
	if err != nil {
		return KeyProof{}, err
	}
	return KeyProof{Key: key, Bump: CanonicalBump}, nil
}

// DeriveWithBump computes the slot key for owner at a specific bump.
func DeriveWithBump(owner identity.ID, bump uint8) (identity.ID, error) {
	reader := hkdf.New(sha256.New, owner[:], []byte{bump}, []byte(hkdfInfoSlot))
	var key identity.ID
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return identity.ID{}, err
	}
	return key, nil
}
