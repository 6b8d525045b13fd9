// Package wallet manages the relay's signing key and produces transaction
// signatures. The secret key never leaves this package: it is not logged,
// not serialized, and zeroed when the manager is closed.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tokenarcade/relay/service/codec"
)

var (
	// ErrNotConfigured is returned by signing operations when no usable
	// key has been loaded. Callers should surface this as a degraded-mode
	// condition rather than a crash.
	ErrNotConfigured = errors.New("wallet not configured")

	// ErrInvalidKeyLength is returned when the decoded secret is neither a
	// 64-byte private key nor a 32-byte seed.
	ErrInvalidKeyLength = errors.New("invalid key length")
)

// Manager holds the relay's ed25519 keypair.
// A Manager with no key is valid: it reports IsConfigured() == false and
// all signing calls fail fast with ErrNotConfigured.
type Manager struct {
	priv   ed25519.PrivateKey
	pubkey string // base58, derived once at load
	logger *slog.Logger
}

// NewManager loads the signing key from an opaque base58 secret.
//
// A 64-byte decode is treated as a full private key (seed followed by
// public key); a 32-byte decode is treated as a seed and expanded. Any
// other length returns ErrInvalidKeyLength along with a degraded manager,
// so the caller can log the problem and keep the process running.
// An empty secret yields a degraded manager with no error.
func NewManager(secret string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger}

	if secret == "" {
		logger.Warn("no signing secret provided, wallet starting unconfigured")
		return m, nil
	}

	raw, err := codec.Decode(secret)
	if err != nil {
		return m, fmt.Errorf("failed to decode signing secret: %w", err)
	}

	switch len(raw) {
	case ed25519.PrivateKeySize: // 64: seed || public key
		derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(derived.Public().(ed25519.PublicKey), raw[ed25519.SeedSize:]) {
			return m, errors.New("secret key public half does not match derived public key")
		}
		m.priv = derived
	case ed25519.SeedSize: // 32: seed only
		m.priv = ed25519.NewKeyFromSeed(raw)
	default:
		return m, fmt.Errorf("%w: got %d bytes, want 32 or 64", ErrInvalidKeyLength, len(raw))
	}

	m.pubkey = codec.Encode(m.priv.Public().(ed25519.PublicKey))
	logger.Info("wallet configured", "public_key", m.pubkey)
	return m, nil
}

// IsConfigured reports whether a usable signing key is loaded.
func (m *Manager) IsConfigured() bool {
	return m.priv != nil
}

// PublicKey returns the base58 public key and true when configured,
// or ("", false) otherwise.
func (m *Manager) PublicKey() (string, bool) {
	if m.priv == nil {
		return "", false
	}
	return m.pubkey, true
}

// sign computes a detached ed25519 signature over message.
func (m *Manager) sign(message []byte) ([]byte, error) {
	if m.priv == nil {
		return nil, ErrNotConfigured
	}
	return ed25519.Sign(m.priv, message), nil
}

// Close zeroes the key material. The manager reverts to the
// unconfigured state and all subsequent signing calls fail fast.
func (m *Manager) Close() {
	for i := range m.priv {
		m.priv[i] = 0
	}
	m.priv = nil
	m.pubkey = ""
}
