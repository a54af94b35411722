package registrystore

import (
	"fmt"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/registry"
)

// SlotStore persists encoded records keyed by slot key. Create fails on an
// existing slot, Write on a missing one. Payloads are opaque at this layer.
type SlotStore interface {
	Create(key identity.ID, data []byte) error
	Read(key identity.ID) ([]byte, error)
	Write(key identity.ID, data []byte) error
}

// Store loads and saves registry records through a SlotStore, enforcing key
// derivation and the fixed slot capacity.
type Store struct {
	slots SlotStore
}

func New(slots SlotStore) *Store {
	return &Store{slots: slots}
}

// Initialize creates the slot for owner holding a fresh record. The proof
// must equal the canonical derivation for owner, and the slot must not
// exist yet. Proofs at any other bump are rejected even when key and bump
// agree with each other, so one owner cannot mint extra slots.
func (s *Store) Initialize(owner identity.ID, proof KeyProof) (*registry.Record, error) {
	expected, err := Derive(owner)
	if err != nil {
		return nil, err
	}
	if proof != expected {
		return nil, fmt.Errorf("%w: claimed key %s at bump %#02x", ErrKeyMismatch, proof.Key, proof.Bump)
	}
	rec := registry.NewRecord(owner, proof.Bump)
	data, err := registry.Encode(rec)
	if err != nil {
		return nil, err
	}
	if err := s.slots.Create(proof.Key, data); err != nil {
		return nil, err
	}
	return rec, nil
}

// Load reads and decodes the record at key, then checks that its owner and
// bump still derive key. A slot copied under another key is rejected.
func (s *Store) Load(key identity.ID) (*registry.Record, error) {
	data, err := s.slots.Read(key)
	if err != nil {
		return nil, err
	}
	rec, err := registry.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := VerifyRecordKey(key, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save encodes rec into the existing slot at key. Records over the slot
// capacity fail before any byte is written.
func (s *Store) Save(key identity.ID, rec *registry.Record) error {
	data, err := registry.Encode(rec)
	if err != nil {
		return err
	}
	if len(data) > registry.MaxEncodedSize {
		return fmt.Errorf("%w: %d bytes over %d", ErrRecordTooLarge, len(data), registry.MaxEncodedSize)
	}
	return s.slots.Write(key, data)
}

// VerifyRecordKey checks that rec's owner and bump derive key.
func VerifyRecordKey(key identity.ID, rec *registry.Record) error {
	derived, err := DeriveWithBump(rec.Owner, rec.Bump)
	if err != nil {
		return err
	}
	if derived != key {
		return fmt.Errorf("%w: slot %s does not belong to owner %s", ErrKeyMismatch, key, rec.Owner)
	}
	return nil
}
