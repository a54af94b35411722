package registrystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/securestore"
)

const (
	slotFileSuffix = ".slot"
	slotFileMode   = 0o600
	slotDirMode    = 0o700
)

// FileStore keeps one file per slot under a directory. Writes go through a
// temp file and rename, so a crash never leaves a half-written slot behind.
// With a passphrase configured, payloads rest inside a securestore envelope.
type FileStore struct {
	dir        string
	passphrase string
}

func NewFileStore(dir, passphrase string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("slot directory must not be empty")
	}
	if err := os.MkdirAll(dir, slotDirMode); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, passphrase: strings.TrimSpace(passphrase)}, nil
}

func (f *FileStore) Create(key identity.ID, data []byte) error {
	payload, err := f.seal(data)
	if err != nil {
		return err
	}
	path := f.slotPath(key)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, slotFileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, key)
		}
		return err
	}
	if _, err := file.Write(payload); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}

func (f *FileStore) Read(key identity.ID) ([]byte, error) {
	raw, err := os.ReadFile(f.slotPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return f.open(raw)
}

func (f *FileStore) Write(key identity.ID, data []byte) error {
	path := f.slotPath(key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return err
	}
	payload, err := f.seal(data)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, payload, slotFileMode)
}

func (f *FileStore) slotPath(key identity.ID) string {
	return filepath.Join(f.dir, key.String()+slotFileSuffix)
}

func (f *FileStore) seal(data []byte) ([]byte, error) {
	if f.passphrase == "" {
		return data, nil
	}
	return securestore.Encrypt(f.passphrase, data)
}

func (f *FileStore) open(raw []byte) ([]byte, error) {
	if f.passphrase == "" {
		if securestore.IsEncrypted(raw) {
			return nil, ErrNeedPassphrase
		}
		return raw, nil
	}
	return securestore.Decrypt(f.passphrase, raw)
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".slot-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
