package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// per-user credential file (0600) with AES-GCM obfuscation. Keeps API keys
// out of the plain-text config; not a replacement for an OS keychain.

const fileName = "keys.json"

// ErrNotFound is returned when no key is stored for a service.
var ErrNotFound = errors.New("key not found")

type secretFile struct {
	Keys map[string]string `json:"keys"` // service -> base64(ciphertext)
}

// Store reads and writes keys.json in one directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore returns the store under the user config dir.
func DefaultStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("user config dir: %w", err)
	}
	return NewStore(filepath.Join(dir, "panelmatch")), nil
}

// Put encrypts and stores key for service.
func (s *Store) Put(service, key string) error {
	if service = norm(service); service == "" {
		return fmt.Errorf("service required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, err := load(path)
	if err != nil {
		return err
	}
	if sf.Keys == nil {
		sf.Keys = map[string]string{}
	}
	ct, err := encrypt([]byte(key))
	if err != nil {
		return err
	}
	sf.Keys[service] = base64.StdEncoding.EncodeToString(ct)
	return save(path, sf)
}

// Get returns the stored key for service.
func (s *Store) Get(service string) (string, error) {
	if service = norm(service); service == "" {
		return "", fmt.Errorf("service required")
	}
	path, err := s.filePath()
	if err != nil {
		return "", err
	}
	sf, err := load(path)
	if err != nil {
		return "", err
	}
	enc, ok := sf.Keys[service]
	if !ok {
		return "", ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decode %s key: %w", service, err)
	}
	pt, err := decrypt(raw)
	if err != nil {
		return "", fmt.Errorf("decrypt %s key: %w", service, err)
	}
	return string(pt), nil
}

// Delete removes the key for service. Deleting a missing key is not an error.
func (s *Store) Delete(service string) error {
	if service = norm(service); service == "" {
		return fmt.Errorf("service required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, err := load(path)
	if err != nil {
		return err
	}
	delete(sf.Keys, service)
	return save(path, sf)
}

// Resolve picks the key for service: the env var first, then the store,
// then fallback (the config value). store may be nil.
func Resolve(envName string, store *Store, service, fallback string) (string, error) {
	if envName != "" {
		if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
			return v, nil
		}
	}
	if store != nil {
		key, err := store.Get(service)
		switch {
		case err == nil && key != "":
			return key, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return "", err
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("%s: %w", service, ErrNotFound)
}

func (s *Store) filePath() (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir secrets dir: %w", err)
	}
	return filepath.Join(s.dir, fileName), nil
}

func load(path string) (secretFile, error) {
	var sf secretFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return secretFile{}, nil
		}
		return sf, err
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, fmt.Errorf("parse %s: %w", path, err)
	}
	return sf, nil
}

func save(path string, sf secretFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func norm(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func masterKey() []byte {
	base := fmt.Sprintf("panelmatch-%s-%s", runtime.GOOS, os.Getenv("USER"))
	hash := sha256.Sum256([]byte(base))
	return hash[:]
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plain []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	body := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
