// Package keys stores the API key in the OS keyring.
package keys

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	service = "nexus"
	account = "gemini"
)

// Environment variables checked before the keyring, in order.
var EnvVars = []string{"NEXUS_API_KEY", "GEMINI_API_KEY"}

var (
	// ErrNoKey is returned when no key is configured.
	ErrNoKey = errors.New("no API key configured")
	// ErrEmptyKey is returned when storing an empty key.
	ErrEmptyKey = errors.New("API key is empty")
)

// Store reads and writes the API key.
type Store struct {
	service string
	account string
	getenv  func(string) string
}

// New returns the default key store.
func New() *Store {
	return &Store{
		service: service,
		account: account,
		getenv:  os.Getenv,
	}
}

// Source tells where a key came from.
type Source string

// Key sources.
const (
	SourceEnv     Source = "environment"
	SourceKeyring Source = "keyring"
)

// Get returns the key and where it was found.
func (s *Store) Get() (string, Source, error) {
	for _, name := range EnvVars {
		if v := strings.TrimSpace(s.getenv(name)); v != "" {
			return v, SourceEnv, nil
		}
	}
	key, err := keyring.Get(s.service, s.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", "", ErrNoKey
	}
	if err != nil {
		return "", "", fmt.Errorf("read keyring: %w", err)
	}
	if key == "" {
		return "", "", ErrNoKey
	}
	return key, SourceKeyring, nil
}

// Set stores key in the keyring.
func (s *Store) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if err := keyring.Set(s.service, s.account, key); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// Delete removes the key from the keyring. Deleting a missing key is not an
// error.
func (s *Store) Delete() error {
	err := keyring.Delete(s.service, s.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keyring: %w", err)
	}
	return nil
}

// Mask hides all but the first and last four characters of key.
func Mask(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return strings.Repeat("•", len(key))
	}
	return key[:visible] + "…" + key[len(key)-visible:]
}
