package registrystore

import "errors"

var (
	ErrExists         = errors.New("registry slot already exists")
	ErrNotFound       = errors.New("registry slot not found")
	ErrKeyMismatch    = errors.New("slot key does not match derivation")
	ErrRecordTooLarge = errors.New("record exceeds slot capacity")
	ErrNeedPassphrase = errors.New("slot is encrypted and no passphrase is configured")
)
