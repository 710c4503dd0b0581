// Package provisioning keeps the network credentials area and performs the
// controlled restart that follows a factory reset.
//
// Credentials live in the "wifi" namespace of the key-value backend under
// the keys ssid, pass and configured. They are read once at boot; the
// bearer setup that consumes them is outside this process.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-ir/internal/kvstore"
)

// Namespace and keys of the credentials area.
const (
	Namespace     = "wifi"
	KeySSID       = "ssid"
	KeyPass       = "pass"
	KeyConfigured = "configured"
)

// ErrInvalidSSID is returned by Save for an empty network name.
var ErrInvalidSSID = errors.New("provisioning: ssid is required")

// Credentials are the stored network settings.
type Credentials struct {
	SSID       string
	Pass       string
	Configured bool
}

// Store reads and writes the credentials area.
type Store struct {
	kv kvstore.Store
}

// NewStore wraps a key-value backend.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Load returns the stored credentials. Missing keys read as empty and an
// unprovisioned device returns Configured false with no error.
func (s *Store) Load(ctx context.Context) (Credentials, error) {
	var c Credentials
	var err error
	if c.SSID, err = s.get(ctx, KeySSID); err != nil {
		return Credentials{}, err
	}
	if c.Pass, err = s.get(ctx, KeyPass); err != nil {
		return Credentials{}, err
	}
	configured, err := s.get(ctx, KeyConfigured)
	if err != nil {
		return Credentials{}, err
	}
	c.Configured = configured == "true"
	return c, nil
}

// Save stores credentials and marks the device provisioned.
func (s *Store) Save(ctx context.Context, ssid, pass string) error {
	ssid = strings.TrimSpace(ssid)
	if ssid == "" {
		return ErrInvalidSSID
	}
	for _, kv := range [][2]string{{KeySSID, ssid}, {KeyPass, pass}, {KeyConfigured, "true"}} {
		if err := s.kv.Put(ctx, Namespace, kv[0], []byte(kv[1])); err != nil {
			return fmt.Errorf("saving %s: %w", kv[0], err)
		}
	}
	return nil
}

// Clear removes every credential, returning the device to unprovisioned.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Clear(ctx, Namespace); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, Namespace, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return string(v), nil
}
