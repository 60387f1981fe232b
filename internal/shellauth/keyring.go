// Package shellauth keeps the shell's secrets — currently only the score
// table's admin token — in the OS keychain, with a JSON file fallback for
// environments without one.
package shellauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const keyAdminToken = "admintoken"

// SecretStore wraps the OS keychain with an optional file fallback.
// Fallback is intended for environments where no system keyring is available.
type SecretStore struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewSecretStore creates a keyring wrapper.
func NewSecretStore(serviceName, fallbackPath string) *SecretStore {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = "chrono-arcade"
	}
	return &SecretStore{
		service:      serviceName,
		fallbackPath: fallbackPath,
	}
}

// AdminToken returns the stored admin token, generating and persisting a
// fresh one on first use.
func (s *SecretStore) AdminToken() (string, error) {
	token, err := s.getSecret(keyAdminToken)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", err
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("shellauth: generate token: %w", err)
	}
	token = hex.EncodeToString(buf)
	if err := s.setSecret(keyAdminToken, token); err != nil {
		return "", err
	}
	return token, nil
}

// SetAdminToken overwrites the stored admin token.
func (s *SecretStore) SetAdminToken(value string) error {
	return s.setSecret(keyAdminToken, value)
}

// Delete removes every stored secret.
func (s *SecretStore) Delete() error {
	err := keyring.Delete(s.service, keyAdminToken)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
		_ = s.deleteFallback()
		return fmt.Errorf("shellauth: keyring delete: %w", err)
	}
	return s.deleteFallback()
}

func (s *SecretStore) setSecret(part, value string) error {
	if err := keyring.Set(s.service, part, value); err == nil {
		return nil
	} else if !isKeyringUnavailable(err) {
		return fmt.Errorf("shellauth: keyring set %s: %w", part, err)
	}
	return s.setFallback(part, value)
}

func (s *SecretStore) getSecret(part string) (string, error) {
	val, err := keyring.Get(s.service, part)
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("shellauth: keyring get %s: %w", part, err)
	}

	fallback, ferr := s.getFallback(part)
	if ferr == nil {
		return fallback, nil
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return "", keyring.ErrNotFound
	}
	return "", ferr
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "the specified item could not be found in the keychain") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

type fallbackSecrets map[string]string

func (s *SecretStore) setFallback(part, value string) error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return fmt.Errorf("shellauth: keyring unavailable and no fallback path configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	data[part] = value
	return s.writeFallbackUnlocked(data)
}

func (s *SecretStore) getFallback(part string) (string, error) {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return "", fmt.Errorf("shellauth: fallback path not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[part]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return val, nil
}

func (s *SecretStore) deleteFallback() error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	delete(data, keyAdminToken)
	return s.writeFallbackUnlocked(data)
}

func (s *SecretStore) readFallbackUnlocked() (fallbackSecrets, error) {
	out := fallbackSecrets{}
	raw, err := os.ReadFile(s.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("shellauth: read fallback secrets: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("shellauth: decode fallback secrets: %w", err)
	}
	return out, nil
}

func (s *SecretStore) writeFallbackUnlocked(data fallbackSecrets) error {
	dir := filepath.Dir(s.fallbackPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("shellauth: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("shellauth: encode fallback secrets: %w", err)
	}
	if err := os.WriteFile(s.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("shellauth: write fallback secrets: %w", err)
	}
	return nil
}
