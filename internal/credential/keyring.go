package credential

import (
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

// Prefix marks a configuration value that names a keyring entry
const Prefix = "keyring:"

// Store reads and writes secrets in the system keyring
type Store struct {
	open func() (keyring.Keyring, error)
}

// NewStore returns a store for the given keyring service
func NewStore(service, fileDir string) *Store {
	return &Store{open: func() (keyring.Keyring, error) {
		ring, err := keyring.Open(keyring.Config{
			ServiceName: service,
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.SecretServiceBackend,
				keyring.WinCredBackend,
				keyring.PassBackend,
				keyring.FileBackend,
			},
			FileDir:                  fileDir,
			FilePasswordFunc:         keyring.FixedStringPrompt(service + "-file-key"),
			KeychainTrustApplication: true,
		})
		if err != nil {
			return nil, fmt.Errorf("opening keyring: %w", err)
		}
		return ring, nil
	}}
}

// NewStoreWith wraps an already opened keyring
func NewStoreWith(ring keyring.Keyring) *Store {
	return &Store{open: func() (keyring.Keyring, error) { return ring, nil }}
}

// Get retrieves a credential value by key
func (s *Store) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key
func (s *Store) Set(key string, value string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key
func (s *Store) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Resolve returns value unchanged unless it is written "keyring:<key>",
// in which case the secret is read from the keyring
func (s *Store) Resolve(value string) (string, error) {
	key, ok := strings.CutPrefix(value, Prefix)
	if !ok {
		return value, nil
	}
	return s.Get(strings.TrimSpace(key))
}
