package yaml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

// CredentialStore implements repositories.CredentialStore using a plain YAML file
type CredentialStore struct {
	path     string
	required []string
	parser   *BundleParser
}

// NewCredentialStore creates a store reading path and demanding the required keys
func NewCredentialStore(path string, required []string) *CredentialStore {
	return &CredentialStore{
		path:     path,
		required: required,
		parser:   NewBundleParser(),
	}
}

// Path returns the backing file path
func (s *CredentialStore) Path() string {
	return s.path
}

// Load returns the bundle for domain
func (s *CredentialStore) Load(_ context.Context, domain string) (*entities.CredentialBundle, error) {
	bundles, err := s.readAll()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &entities.PreconditionError{Domain: domain, Err: entities.ErrNoCredentials}
		}
		return nil, &entities.PreconditionError{Domain: domain, Err: err}
	}
	return Resolve(bundles, domain, s.required)
}

// Save merges bundle into the file, replacing any bundle for the same domain
func (s *CredentialStore) Save(_ context.Context, bundle *entities.CredentialBundle) error {
	if bundle == nil || bundle.Domain == "" {
		return fmt.Errorf("bundle must have a domain")
	}

	bundles, err := s.readAll()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		bundles = make(map[string]*entities.CredentialBundle)
	}
	bundles[bundle.Domain] = bundle.Clone()

	data, err := s.parser.Encode(bundles)
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.path, data, 0600)
}

func (s *CredentialStore) readAll() (map[string]*entities.CredentialBundle, error) {
	//nolint:gosec // G304: path is the configured credentials file
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", s.path, err)
	}
	return s.parser.Parse(data)
}
