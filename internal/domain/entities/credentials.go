package entities

import (
	"sort"
	"strings"
)

// AuthScheme selects how the credential bundle is presented to the upstream
type AuthScheme string

const (
	// AuthSchemeCookie sends every bundle entry as a cookie
	AuthSchemeCookie AuthScheme = "cookie"

	// AuthSchemeBearer sends the auth_token entry as a bearer token
	AuthSchemeBearer AuthScheme = "bearer"
)

// Credential names used by the built-in schemes
const (
	CredentialSession   = "session"
	CredentialCSRFToken = "csrftoken"
	CredentialAuthToken = "auth_token"
)

// RequiredKeys returns the bundle entries the scheme cannot work without
func (s AuthScheme) RequiredKeys() []string {
	switch s {
	case AuthSchemeBearer:
		return []string{CredentialAuthToken}
	default:
		return []string{CredentialSession, CredentialCSRFToken}
	}
}

// Valid reports whether the scheme is known
func (s AuthScheme) Valid() bool {
	return s == AuthSchemeCookie || s == AuthSchemeBearer
}

// CredentialBundle is an opaque set of named credential values scoped to one domain
type CredentialBundle struct {
	Domain string
	Values map[string]string
}

// Get returns the named value
func (b *CredentialBundle) Get(name string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.Values[name]
	return v, ok
}

// Names returns the entry names in sorted order
func (b *CredentialBundle) Names() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.Values))
	for name := range b.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the required names that are absent or empty, in the order given
func (b *CredentialBundle) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if v, ok := b.Get(name); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Clone returns a deep copy of the bundle
func (b *CredentialBundle) Clone() *CredentialBundle {
	if b == nil {
		return nil
	}
	values := make(map[string]string, len(b.Values))
	for k, v := range b.Values {
		values[k] = v
	}
	return &CredentialBundle{Domain: b.Domain, Values: values}
}
