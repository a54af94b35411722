// prism-keygen produces owner and admin identities for the registry: a
// bip39 mnemonic, the derived ed25519 identity, and the registry slot the
// identity would own.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/registrystore"
)

type output struct {
	Mnemonic string `json:"mnemonic,omitempty"`
	Identity string `json:"identity"`
	Slot     string `json:"slot,omitempty"`
	Bump     uint8  `json:"bump,omitempty"`
}

func main() {
	mnemonicFlag := flag.String("mnemonic", "", "derive from an existing mnemonic instead of generating one")
	showSlot := flag.Bool("slot", false, "also print the registry slot key the identity would own")
	asJSON := flag.Bool("json", false, "emit json instead of text")
	flag.Parse()

	mnemonic := strings.TrimSpace(*mnemonicFlag)
	generated := false
	if mnemonic == "" {
		var err error
		mnemonic, err = identity.NewMnemonic()
		if err != nil {
			fatalf("generate mnemonic: %v", err)
		}
		generated = true
	}

	kp, err := identity.KeypairFromMnemonic(mnemonic)
	if err != nil {
		fatalf("derive keypair: %v", err)
	}
	id := kp.ID()

	out := output{Identity: id.String()}
	if generated {
		out.Mnemonic = mnemonic
	}
	if *showSlot {
		proof, err := registrystore.Derive(id)
		if err != nil {
			fatalf("derive slot: %v", err)
		}
		out.Slot = proof.Key.String()
		out.Bump = proof.Bump
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatalf("encode: %v", err)
		}
		return
	}

	if generated {
		fmt.Printf("mnemonic: %s\n", mnemonic)
	}
	fmt.Printf("identity: %s\n", out.Identity)
	if *showSlot {
		fmt.Printf("slot:     %s (bump %d)\n", out.Slot, out.Bump)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "prism-keygen: "+format+"\n", args...)
	os.Exit(1)
}
