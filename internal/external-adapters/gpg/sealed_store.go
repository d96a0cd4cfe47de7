// Package gpg provides passphrase-sealed credential storage using OpenPGP.
package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/external-adapters/yaml"
)

const messageBlockType = "PGP MESSAGE"

// maxSealedSize bounds the ciphertext read from disk
const maxSealedSize = 1 << 20

var (
	// ErrPassphraseRequired is returned when no passphrase was configured
	ErrPassphraseRequired = errors.New("passphrase required for sealed credentials")

	// ErrWrongPassphrase is returned when the passphrase does not decrypt the bundle
	ErrWrongPassphrase = errors.New("passphrase does not decrypt credentials")
)

// SealedCredentialStore keeps the YAML bundle file encrypted with a passphrase
// (ASCII-armored, symmetrically encrypted OpenPGP message).
// It uses ProtonMail's go-crypto, the maintained fork of golang.org/x/crypto/openpgp.
type SealedCredentialStore struct {
	path       string
	passphrase []byte
	required   []string
	parser     *yaml.BundleParser
}

// NewSealedCredentialStore creates a sealed store
func NewSealedCredentialStore(path string, passphrase []byte, required []string) *SealedCredentialStore {
	return &SealedCredentialStore{
		path:       path,
		passphrase: passphrase,
		required:   required,
		parser:     yaml.NewBundleParser(),
	}
}

// Load decrypts the file and returns the bundle for domain
func (s *SealedCredentialStore) Load(_ context.Context, domain string) (*entities.CredentialBundle, error) {
	if len(s.passphrase) == 0 {
		return nil, &entities.PreconditionError{Domain: domain, Err: ErrPassphraseRequired}
	}

	bundles, err := s.readAll()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &entities.PreconditionError{Domain: domain, Err: entities.ErrNoCredentials}
		}
		return nil, &entities.PreconditionError{Domain: domain, Err: err}
	}
	return yaml.Resolve(bundles, domain, s.required)
}

// Save merges bundle into the sealed file and re-encrypts it
func (s *SealedCredentialStore) Save(_ context.Context, bundle *entities.CredentialBundle) error {
	if bundle == nil || bundle.Domain == "" {
		return fmt.Errorf("bundle must have a domain")
	}
	if len(s.passphrase) == 0 {
		return ErrPassphraseRequired
	}

	bundles, err := s.readAll()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		bundles = make(map[string]*entities.CredentialBundle)
	}
	bundles[bundle.Domain] = bundle.Clone()

	plain, err := s.parser.Encode(bundles)
	if err != nil {
		return err
	}
	sealed, err := Seal(plain, s.passphrase)
	if err != nil {
		return err
	}
	return yaml.WriteFileAtomic(s.path, sealed, 0600)
}

func (s *SealedCredentialStore) readAll() (map[string]*entities.CredentialBundle, error) {
	//nolint:gosec // G304: path is the configured credentials file
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed credentials %s: %w", s.path, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	plain, err := Unseal(io.LimitReader(f, maxSealedSize), s.passphrase)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(plain)
}

// Seal encrypts plaintext with passphrase and returns an armored message
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	var buf bytes.Buffer

	armored, err := armor.Encode(&buf, messageBlockType, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create armor encoder: %w", err)
	}

	w, err := openpgp.SymmetricallyEncrypt(armored, passphrase, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish armor: %w", err)
	}

	return buf.Bytes(), nil
}

// Unseal decrypts an armored message produced by Seal
func Unseal(r io.Reader, passphrase []byte) ([]byte, error) {
	block, err := armor.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode armor: %w", err)
	}
	if block.Type != messageBlockType {
		return nil, fmt.Errorf("unexpected armor block type %q", block.Type)
	}

	// ReadMessage keeps prompting until a key works; answer only once
	prompted := false
	prompt := func(_ []openpgp.Key, symmetric bool) ([]byte, error) {
		if !symmetric || prompted {
			return nil, ErrWrongPassphrase
		}
		prompted = true
		return passphrase, nil
	}

	md, err := openpgp.ReadMessage(block.Body, openpgp.EntityList{}, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	plain, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		// integrity failures surface here when the passphrase was wrong
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	return plain, nil
}
