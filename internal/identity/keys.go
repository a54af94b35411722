package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoSigning = "prism/identity/signing/v1"

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Keypair is a signing identity. The public half, copied into an ID, is the
// address authorities and modules go by on the registry.
type Keypair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

func (k *Keypair) ID() ID {
	var id ID
	copy(id[:], k.Public)
	return id
}

// NewMnemonic generates a fresh 24-word recovery mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// KeypairFromMnemonic derives the signing keypair a mnemonic encodes. The
// derivation is deterministic: the same mnemonic always yields the same ID.
func KeypairFromMnemonic(mnemonic string) (*Keypair, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return keypairFromSeed(bip39.NewSeed(mnemonic, ""))
}

func keypairFromSeed(seed []byte) (*Keypair, error) {
	signingSeed, err := hkdfExpand(seed, hkdfInfoSigning, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(signingSeed)
	return &Keypair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
