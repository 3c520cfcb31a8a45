// Package credential keeps per-tenant API tokens in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "advisortasks"

// ErrNoToken is returned when no token is stored for a tenant.
var ErrNoToken = errors.New("no api token stored")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/advisortasks/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("advisortasks-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// TokenKey returns the keyring key of a tenant's API token.
func TokenKey(tenant string) string {
	return "api-token:" + tenant
}

// Store reads and writes tenant tokens in a keyring.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store over the system keyring.
func Open() (*Store, error) {
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	return &Store{ring: ring}, nil
}

// NewStore returns a Store over ring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Token returns the stored API token of tenant, or ErrNoToken.
func (s *Store) Token(tenant string) (string, error) {
	item, err := s.ring.Get(TokenKey(tenant))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("tenant %s: %w", tenant, ErrNoToken)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", TokenKey(tenant), err)
	}
	return string(item.Data), nil
}

// SetToken stores the API token of tenant.
func (s *Store) SetToken(tenant, token string) error {
	if tenant == "" || token == "" {
		return errors.New("tenant and token must not be empty")
	}

	err := s.ring.Set(keyring.Item{
		Key:   TokenKey(tenant),
		Data:  []byte(token),
		Label: "advisortasks api token (" + tenant + ")",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", TokenKey(tenant), err)
	}
	return nil
}

// DeleteToken removes the API token of tenant.
func (s *Store) DeleteToken(tenant string) error {
	err := s.ring.Remove(TokenKey(tenant))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", TokenKey(tenant), err)
	}
	return nil
}

// ResolveToken prefers an explicit token and falls back to the keyring.
// A missing keyring entry yields an empty token.
func (s *Store) ResolveToken(tenant, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	tok, err := s.Token(tenant)
	if errors.Is(err, ErrNoToken) {
		return "", nil
	}
	return tok, err
}
