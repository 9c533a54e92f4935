package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"worldip/internal/ownership"
)

// ErrNotSignedIn is returned when no session has been saved.
var ErrNotSignedIn = errors.New("not signed in")

// Provider names how the identity was authenticated.
type Provider string

const (
	ProviderEmailOTP Provider = "email-otp"
	ProviderOAuth    Provider = "oauth"
	ProviderWallet   Provider = "wallet"
)

// Providers lists the accepted provider names.
var Providers = []Provider{ProviderEmailOTP, ProviderOAuth, ProviderWallet}

// ParseProvider validates a provider name. Empty means wallet.
func ParseProvider(value string) (Provider, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ProviderWallet, nil
	}
	for _, p := range Providers {
		if string(p) == value {
			return p, nil
		}
	}
	names := make([]string, len(Providers))
	for i, p := range Providers {
		names[i] = string(p)
	}
	return "", fmt.Errorf("unknown provider %q (expected one of %s)", value, strings.Join(names, ", "))
}

// Identity is the signed-in user.
type Identity struct {
	Address    ownership.Address `toml:"address"`
	Email      string            `toml:"email,omitempty"`
	Username   string            `toml:"username"`
	Provider   Provider          `toml:"provider"`
	SignedInAt time.Time         `toml:"signed_in_at"`
}

// normalize validates the address and fills derived defaults.
func (id *Identity) normalize() error {
	addr, err := ownership.ParseAddress(string(id.Address))
	if err != nil {
		return err
	}
	id.Address = addr
	provider, err := ParseProvider(string(id.Provider))
	if err != nil {
		return err
	}
	id.Provider = provider
	id.Email = strings.TrimSpace(id.Email)
	id.Username = strings.TrimSpace(id.Username)
	if id.Username == "" {
		id.Username = GenerateUsername(addr)
	}
	return nil
}
