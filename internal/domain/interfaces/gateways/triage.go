// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

// SampleSession is an authenticated connection to the sample site.
// Implementations are immutable once opened and safe for concurrent use.
type SampleSession interface {
	// Search fetches the raw HTML result page for query. Failures are
	// returned as *entities.SearchFetchError and are never retried.
	Search(ctx context.Context, query entities.SearchQuery) (string, error)

	// Download streams one artifact into destDir. Every per-item failure is
	// captured in the returned outcome.
	Download(ctx context.Context, id entities.SampleIdentifier, destDir string) entities.DownloadOutcome
}

// SessionOpener builds a session from a credential bundle
type SessionOpener interface {
	Open(bundle *entities.CredentialBundle) (SampleSession, error)
}
