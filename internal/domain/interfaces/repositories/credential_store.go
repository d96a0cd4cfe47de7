// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

// CredentialStore loads a previously captured credential bundle
type CredentialStore interface {
	// Load returns the bundle for domain. Absence of the bundle or of any
	// required key is reported as *entities.PreconditionError.
	Load(ctx context.Context, domain string) (*entities.CredentialBundle, error)
}

// CredentialWriter persists a bundle captured by an external collaborator
type CredentialWriter interface {
	Save(ctx context.Context, bundle *entities.CredentialBundle) error
}
