package crypto

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SaveSignerKey writes the hex-encoded key seed to the given path with 0600
// permissions. If the parent directory does not exist it will be created with
// 0700 permissions. The write is staged in a temporary file so a crash cannot
// leave a truncated key behind.
func SaveSignerKey(path string, key *SignerKey) error {
	if key == nil {
		return errors.New("crypto: nil signer key")
	}
	if path == "" {
		return errors.New("crypto: empty key path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "signer-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(hex.EncodeToString(key.Seed()) + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// LoadSignerKey reads a hex-encoded seed file written by SaveSignerKey.
func LoadSignerKey(path string) (*SignerKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty key path")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.New("crypto: key file is not valid hex")
	}
	return SignerKeyFromSeed(seed)
}
