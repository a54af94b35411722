package identity

import (
	"errors"
	"testing"
)

const testMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"

func TestKeypairFromMnemonicIsDeterministic(t *testing.T) {
	first, err := KeypairFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	second, err := KeypairFromMnemonic("  " + testMnemonic + "\n")
	if err != nil {
		t.Fatalf("derive with padding failed: %v", err)
	}
	if first.ID() != second.ID() {
		t.Fatalf("same mnemonic produced different ids: %s vs %s", first.ID(), second.ID())
	}
	if first.ID().IsZero() {
		t.Fatal("derived id is zero")
	}
}

func TestKeypairFromMnemonicRejectsInvalid(t *testing.T) {
	if _, err := KeypairFromMnemonic("not a mnemonic at all"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
	if _, err := KeypairFromMnemonic(""); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic for empty input, got %v", err)
	}
}

func TestNewMnemonicDerivesUsableKeypair(t *testing.T) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		t.Fatalf("mnemonic generation failed: %v", err)
	}
	kp, err := KeypairFromMnemonic(mnemonic)
	if err != nil {
		t.Fatalf("derive from fresh mnemonic failed: %v", err)
	}
	if kp.ID().IsZero() {
		t.Fatal("derived id is zero")
	}
}
