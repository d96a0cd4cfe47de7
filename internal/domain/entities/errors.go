package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyQuery is returned when the family term is blank
	ErrEmptyQuery = errors.New("family name cannot be empty")

	// ErrTooManyRedirects is returned when a request exceeds the redirect bound
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrAuthRejected is wrapped by search failures caused by 401/403 responses
	ErrAuthRejected = errors.New("credentials rejected by upstream")

	// ErrInvalidIdentifier marks identifiers that cannot be safely embedded in a path
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNoCredentials is wrapped when no bundle exists for a domain
	ErrNoCredentials = errors.New("no credentials found")
)

// PreconditionError reports missing or unusable credentials.
// It is fatal for the run and raised before any network call.
type PreconditionError struct {
	Domain  string
	Missing []string
	Err     error
}

func (e *PreconditionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "credentials for %s", e.Domain)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " missing required keys [%s]", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// SearchFetchError reports a failed search request. It is never retried.
type SearchFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *SearchFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search request %s failed with HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search request %s failed: %v", e.URL, e.Err)
}

func (e *SearchFetchError) Unwrap() error {
	return e.Err
}
