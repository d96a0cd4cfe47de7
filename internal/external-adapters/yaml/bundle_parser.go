// Package yaml provides YAML-based credential bundle and config persistence.
package yaml

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/triagedl/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlBundleFile is the raw file layout: domain -> credential name -> value
type yamlBundleFile map[string]map[string]string

// BundleParser converts between bundle files and CredentialBundle entities
type BundleParser struct{}

// NewBundleParser creates a new bundle parser
func NewBundleParser() *BundleParser {
	return &BundleParser{}
}

// Parse parses YAML bytes into bundles keyed by domain
func (p *BundleParser) Parse(data []byte) (map[string]*entities.CredentialBundle, error) {
	var raw yamlBundleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	bundles := make(map[string]*entities.CredentialBundle, len(raw))
	for domain, values := range raw {
		domain = strings.TrimSpace(domain)
		if domain == "" {
			return nil, fmt.Errorf("credential bundle with empty domain")
		}
		b := &entities.CredentialBundle{Domain: domain, Values: make(map[string]string, len(values))}
		for name, value := range values {
			b.Values[name] = value
		}
		bundles[domain] = b
	}

	return bundles, nil
}

// Encode serializes bundles back into the file layout
func (p *BundleParser) Encode(bundles map[string]*entities.CredentialBundle) ([]byte, error) {
	raw := make(yamlBundleFile, len(bundles))
	for domain, b := range bundles {
		values := make(map[string]string, len(b.Values))
		for name, value := range b.Values {
			values[name] = value
		}
		raw[domain] = values
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Resolve picks the bundle for domain and checks the required keys.
// Both failures are reported as *entities.PreconditionError.
func Resolve(bundles map[string]*entities.CredentialBundle, domain string, required []string) (*entities.CredentialBundle, error) {
	b, ok := bundles[domain]
	if !ok {
		return nil, &entities.PreconditionError{Domain: domain, Err: entities.ErrNoCredentials}
	}
	if missing := b.Missing(required); len(missing) > 0 {
		return nil, &entities.PreconditionError{Domain: domain, Missing: missing}
	}
	return b.Clone(), nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
