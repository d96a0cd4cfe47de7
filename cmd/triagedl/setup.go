package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/triagedl/internal/config"
	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/domain/interfaces"
	"github.com/ochairo/triagedl/internal/domain/interfaces/repositories"
	"github.com/ochairo/triagedl/internal/external-adapters/gpg"
	logadapter "github.com/ochairo/triagedl/internal/external-adapters/logrus"
	"github.com/ochairo/triagedl/internal/external-adapters/yaml"
)

// PassphraseEnv holds the passphrase of a sealed credentials file
const PassphraseEnv = "TRIAGEDL_PASSPHRASE"

// credentialStore is a store the CLI can both read and populate
type credentialStore interface {
	repositories.CredentialStore
	repositories.CredentialWriter
}

// commonFlags are shared by every subcommand that touches config
type commonFlags struct {
	configPath  *string
	credentials *string
	domain      *string
	authScheme  *string
	logLevel    *string
	logFormat   *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath:  fs.String("config", "", "Path to YAML config file (env TRIAGEDL_CONFIG)"),
		credentials: fs.String("credentials", "", "Credentials file; a .asc suffix selects the sealed store"),
		domain:      fs.String("domain", "", "Credential domain (default from config)"),
		authScheme:  fs.String("auth", "", "Auth scheme: cookie or bearer"),
		logLevel:    fs.String("log-level", "", "Log level: debug, info, warn, error"),
		logFormat:   fs.String("log-format", "", "Log format: text or json"),
	}
}

// load resolves config as file, then environment, then flags
func (c *commonFlags) load() (config.Config, error) {
	cfg := config.Default()

	path := *c.configPath
	if path == "" {
		path = os.Getenv("TRIAGEDL_CONFIG")
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	if *c.credentials != "" {
		cfg.CredentialsFile = *c.credentials
	}
	if *c.domain != "" {
		cfg.Domain = *c.domain
	}
	if *c.authScheme != "" {
		cfg.Auth.Scheme = entities.AuthScheme(strings.ToLower(*c.authScheme))
	}
	if *c.logLevel != "" {
		cfg.Log.Level = *c.logLevel
	}
	if *c.logFormat != "" {
		cfg.Log.Format = *c.logFormat
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*logadapter.Logger, error) {
	logger, err := logadapter.New(logadapter.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	return logger.With(interfaces.F("domain", cfg.Domain)), nil
}

// newCredentialStore picks the sealed store for .asc files or when sealing
// is requested, and the plain YAML store otherwise.
func newCredentialStore(cfg config.Config, seal bool) credentialStore {
	required := cfg.RequiredKeys()
	if seal || strings.HasSuffix(cfg.CredentialsFile, ".asc") {
		return gpg.NewSealedCredentialStore(cfg.CredentialsFile, []byte(os.Getenv(PassphraseEnv)), required)
	}
	return yaml.NewCredentialStore(cfg.CredentialsFile, required)
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", fmt.Sprintf(format, args...))
}
