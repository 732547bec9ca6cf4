package profile

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "messages"

// ErrSecretNotFound reports that no entry exists under the requested
// key. Check for it with IsSecretNotFound.
var ErrSecretNotFound = errors.New("secret not found")

// IsSecretNotFound reports whether err means the secret store has no
// entry for the key, as opposed to the store being unreachable.
func IsSecretNotFound(err error) bool {
	return errors.Is(err, ErrSecretNotFound)
}

// secretRing is the minimal surface the session needs from a secret
// store. The memory store substitutes its own implementation.
type secretRing interface {
	get(key string) (string, error)
	set(key, value string) error
}

// openKeyring returns the encrypted secret store for a profile
// directory. The OS keychain is preferred; the file backend under
// dir/credentials is the headless fallback.
func openKeyring(dir string) (*systemRing, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &systemRing{ring: ring}, nil
}

type systemRing struct {
	ring keyring.Keyring
}

func (r *systemRing) get(key string) (string, error) {
	item, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %q", ErrSecretNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (r *systemRing) set(key, value string) error {
	err := r.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting secret %q: %w", key, err)
	}
	return nil
}
