package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

func runCreds(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printCredsUsage()
		return ExitInvalidArgs
	}

	switch args[0] {
	case "set":
		return runCredsSet(ctx, args[1:])
	case "check":
		return runCredsCheck(ctx, args[1:])
	case "help", "-h", "--help":
		printCredsUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown creds command: %s\n\n", args[0])
		printCredsUsage()
		return ExitInvalidArgs
	}
}

func printCredsUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  triagedl creds set [options] name=value...
  triagedl creds check [options]

set    Store captured session values for a domain. Existing values for the
       domain are replaced. With --seal (or a .asc credentials file) the file
       is encrypted with the passphrase from TRIAGEDL_PASSPHRASE.
check  Verify that the stored bundle has every required key. Values are
       never printed.

Examples:
  triagedl creds set --domain tria.ge session=... csrftoken=...
  TRIAGEDL_PASSPHRASE=... triagedl creds set --seal --credentials creds.yaml.asc session=... csrftoken=...
  triagedl creds check --auth bearer`)
}

func runCredsSet(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("creds set", flag.ContinueOnError)
	common := addCommonFlags(fs)
	seal := fs.Bool("seal", false, "Encrypt the credentials file with TRIAGEDL_PASSPHRASE")
	fs.Usage = printCredsUsage

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg, err := common.load()
	if err != nil {
		printError("%v", err)
		return ExitInvalidArgs
	}

	values, err := parseAssignments(fs.Args())
	if err != nil {
		printError("%v", err)
		return ExitInvalidArgs
	}

	bundle := &entities.CredentialBundle{Domain: cfg.Domain, Values: values}
	if missing := bundle.Missing(cfg.RequiredKeys()); len(missing) > 0 {
		printError("%v", &entities.PreconditionError{Domain: cfg.Domain, Missing: missing})
		return ExitPrecondition
	}

	store := newCredentialStore(cfg, *seal)
	if err := store.Save(ctx, bundle); err != nil {
		printError("failed to save credentials: %v", err)
		return ExitRunError
	}

	fmt.Printf("Stored %d credential(s) for %s in %s: %s\n",
		len(values), cfg.Domain, cfg.CredentialsFile, strings.Join(bundle.Names(), ", "))
	return ExitSuccess
}

func runCredsCheck(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("creds check", flag.ContinueOnError)
	common := addCommonFlags(fs)
	fs.Usage = printCredsUsage

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg, err := common.load()
	if err != nil {
		printError("%v", err)
		return ExitInvalidArgs
	}

	bundle, err := newCredentialStore(cfg, false).Load(ctx, cfg.Domain)
	if err != nil {
		printError("%v", err)
		var pre *entities.PreconditionError
		if errors.As(err, &pre) {
			return ExitPrecondition
		}
		return ExitRunError
	}

	fmt.Printf("Credentials for %s OK (%s): %s\n", cfg.Domain, cfg.Auth.Scheme, strings.Join(bundle.Names(), ", "))
	return ExitSuccess
}

// parseAssignments turns name=value arguments into a bundle map
func parseAssignments(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one name=value pair is required")
	}
	values := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid credential %q: expected name=value", arg)
		}
		if value == "" {
			return nil, fmt.Errorf("credential %s has an empty value", name)
		}
		values[name] = value
	}
	return values, nil
}
