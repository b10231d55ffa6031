package main

import (
	"os"
	"path/filepath"

	"github.com/engramhq/engram/pkg/engerrors"
)

// fileKeyVault is a reference KeyVault implementation standing in for the
// OS keychain: spec.md treats the keychain as an external collaborator and
// asks only for an interface plus a reference fake. It stores the raw
// master key in a single file under the data directory, relying on the
// file's permissions rather than a second layer of encryption.
type fileKeyVault struct {
	path string
}

func newFileKeyVault(dataDir string) *fileKeyVault {
	return &fileKeyVault{path: filepath.Join(dataDir, "master.key")}
}

func (v *fileKeyVault) GetMasterKey() ([]byte, error) {
	data, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return nil, engerrors.New(engerrors.NotInitialized, "keyvault.get_master_key")
	}
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "keyvault.get_master_key", err)
	}
	if len(data) != 32 {
		return nil, engerrors.New(engerrors.FormatError, "keyvault.get_master_key")
	}
	return data, nil
}

func (v *fileKeyVault) SetMasterKey(key []byte) error {
	if len(key) != 32 {
		return engerrors.New(engerrors.FormatError, "keyvault.set_master_key")
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return engerrors.Wrap(engerrors.StorageError, "keyvault.set_master_key", err)
	}
	if err := os.WriteFile(v.path, key, 0o600); err != nil {
		return engerrors.Wrap(engerrors.StorageError, "keyvault.set_master_key", err)
	}
	return nil
}
