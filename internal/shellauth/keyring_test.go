package shellauth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

// The keychain itself is environment-dependent, so the tests exercise the
// file fallback directly.

func newFallbackStore(t *testing.T) *SecretStore {
	t.Helper()
	return NewSecretStore("chrono-arcade-test", filepath.Join(t.TempDir(), "secrets.json"))
}

func TestFallbackRoundTrip(t *testing.T) {
	s := newFallbackStore(t)

	if err := s.setFallback(keyAdminToken, "tok-123"); err != nil {
		t.Fatalf("setFallback: %v", err)
	}
	got, err := s.getFallback(keyAdminToken)
	if err != nil {
		t.Fatalf("getFallback: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("token = %q", got)
	}
}

func TestFallbackMissingKey(t *testing.T) {
	s := newFallbackStore(t)
	_, err := s.getFallback(keyAdminToken)
	if !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFallbackDelete(t *testing.T) {
	s := newFallbackStore(t)
	if err := s.setFallback(keyAdminToken, "tok"); err != nil {
		t.Fatal(err)
	}
	if err := s.deleteFallback(); err != nil {
		t.Fatalf("deleteFallback: %v", err)
	}
	if _, err := s.getFallback(keyAdminToken); !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNoFallbackPathConfigured(t *testing.T) {
	s := NewSecretStore("", "")
	if err := s.setFallback(keyAdminToken, "tok"); err == nil {
		t.Error("setFallback without a path must fail")
	}
	if _, err := s.getFallback(keyAdminToken); err == nil {
		t.Error("getFallback without a path must fail")
	}
}
