package credential

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "tgpost"

// KeyringStore keeps credentials in the OS keychain.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a store using service as the keychain namespace.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// Describe implements Store.
func (s *KeyringStore) Describe() string { return "OS keyring (" + s.service + ")" }

// Get implements Store.
func (s *KeyringStore) Get(key string) (string, error) {
	value, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring get %s: %w", key, err)
	}
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Set implements Store.
func (s *KeyringStore) Set(key, value string) error {
	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

// Remove implements Store. Missing keys are ignored.
func (s *KeyringStore) Remove(keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := keyring.Delete(s.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = append(errs, fmt.Errorf("keyring delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
