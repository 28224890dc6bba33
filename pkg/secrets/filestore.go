package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FileStore is a TokenStore backed by a JSON file mapping IDs to
// hex-encoded ciphertext. Every change is written through to the file.
type FileStore struct {
	mu        sync.RWMutex
	masterKey []byte
	path      string
	entries   map[string]string
}

func NewFileStore(masterKeyHex string, path string, create bool) (*FileStore, error) {
	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("master key is empty")
	}

	entries, err := load(path)
	switch {
	case os.IsNotExist(err) && create:
		entries = map[string]string{}
		if err := save(path, entries); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
	case os.IsNotExist(err):
		return nil, fmt.Errorf("secrets file %s does not exist", path)
	case err != nil:
		return nil, fmt.Errorf("failed to load secrets from %s: %w", path, err)
	}

	return &FileStore{masterKey: masterKey, path: path, entries: entries}, nil
}

// OpenStore() opens (and creates if needed) the store at path with the
// master key from MASTER_KEY.
func OpenStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path to secrets file required")
	}
	masterKey := os.Getenv(MasterKeyEnv)
	if masterKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", MasterKeyEnv)
	}
	return NewFileStore(masterKey, path, true)
}

// GenerateMasterKey() returns 32 random bytes, hex encoded, for AES-256.
func GenerateMasterKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

func (s *FileStore) Token(id string) (string, error) {
	s.mu.RLock()
	encrypted, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrNoToken)
	}
	token, err := decryptAESGCM(deriveAESKey(s.masterKey, id), encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token for %s: %w", id, err)
	}
	return token, nil
}

func (s *FileStore) SetToken(id string, token string) error {
	encrypted, err := encryptAESGCM(deriveAESKey(s.masterKey, id), []byte(token))
	if err != nil {
		return fmt.Errorf("failed to encrypt token for %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = encrypted
	return save(s.path, s.entries)
}

func (s *FileStore) IDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := maps.Keys(s.entries)
	slices.Sort(ids)
	return ids, nil
}

func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNoToken)
	}
	delete(s.entries, id)
	return save(s.path, s.entries)
}

func (s *FileStore) Path() string {
	return s.path
}

// save() replaces the file through a temporary file in the same
// directory so a failed write never truncates existing tokens.
func save(path string, entries map[string]string) error {
	b, err := json.MarshalIndent(map[string]any{"tokens": entries}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".patchbay-secrets-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func load(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Tokens map[string]string `json:"tokens"`
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &file); err != nil {
			return nil, err
		}
	}
	if file.Tokens == nil {
		file.Tokens = map[string]string{}
	}
	return file.Tokens, nil
}
