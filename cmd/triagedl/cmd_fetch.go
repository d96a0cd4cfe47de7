package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ochairo/triagedl/internal/config"
	"github.com/ochairo/triagedl/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/triagedl/internal/domain-orchestrators"
	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/domain/interfaces"
	"github.com/ochairo/triagedl/internal/external-adapters/htmlparse"
	"github.com/ochairo/triagedl/internal/external-adapters/ratelimit"
)

func runFetch(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	common := addCommonFlags(fs)
	var (
		baseURL    = fs.String("base-url", "", "Sample site base URL (default from config)")
		outputDir  = fs.String("output-dir", "", "Root directory for downloads (default from config)")
		limit      = fs.Int("limit", 0, "Maximum number of search results (default from config)")
		workers    = fs.Int("workers", 0, "Concurrent downloads (default from config)")
		delay      = fs.Duration("delay", -1, "Pause between items, e.g. 100ms (default from config)")
		jsonOutput = fs.String("json-output", "", "Optional JSON file for the detailed run report")
		quiet      = fs.Bool("quiet", false, "Quiet mode - only print the summary")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: triagedl fetch [options] <family>

Search for samples tagged with a malware family and download each one
to <output-dir>/<family>/<id>_sample.zip.

Examples:
  triagedl fetch emotet
  triagedl fetch --workers 4 --delay 250ms "agent tesla"
  triagedl fetch --credentials creds.yaml.asc --json-output report.json qakbot

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	for _, arg := range fs.Args() {
		if strings.HasPrefix(arg, "-") {
			printError("option %s must come before the family name", arg)
			return ExitInvalidArgs
		}
	}

	family := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if family == "" {
		printError("%v", entities.ErrEmptyQuery)
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := common.load()
	if err != nil {
		printError("%v", err)
		return ExitInvalidArgs
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *outputDir != "" {
		cfg.DownloadDir = *outputDir
	}
	if *limit > 0 {
		cfg.Limit = *limit
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *delay >= 0 {
		cfg.ItemDelay = *delay
	}
	if err := cfg.Validate(); err != nil {
		printError("%v", err)
		return ExitInvalidArgs
	}

	logger, err := newLogger(cfg)
	if err != nil {
		printError("%v", err)
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[triagedl] Received interrupt, finishing in-flight downloads...")
			cancel()
		case <-ctx.Done():
		}
	}()

	orch, err := buildOrchestrator(cfg, logger, *quiet)
	if err != nil {
		printError("%v", err)
		return ExitRunError
	}

	report, runErr := orch.Run(ctx, family)

	if report != nil && report.State == entities.RunStateDone {
		fmt.Print(report.SummaryText())
	}
	if *jsonOutput != "" && report != nil {
		if err := writeReport(*jsonOutput, report); err != nil {
			printError("%v", err)
			if runErr == nil {
				return ExitRunError
			}
		}
	}

	return exitCodeFor(ctx, runErr)
}

func buildOrchestrator(cfg config.Config, logger interfaces.Logger, quiet bool) (*orchestrators.BatchOrchestrator, error) {
	factory, err := gateways.NewSessionFactory(gateways.SessionConfig{
		BaseURL:      cfg.BaseURL,
		Scheme:       cfg.Auth.Scheme,
		RequiredKeys: cfg.RequiredKeys(),
		UserAgent:    cfg.Auth.UserAgent,
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Retry:        cfg.RetryPolicy(),
		MinSize:      cfg.MinSize,
		ChunkSize:    cfg.ChunkSize,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	// One worker keeps the plain per-item pause; a pool shares one limiter
	var throttle orchestrators.Throttle
	if cfg.Workers <= 1 {
		throttle = ratelimit.NewSleepThrottle(cfg.ItemDelay)
	} else {
		throttle = ratelimit.NewRateThrottle(cfg.ItemDelay)
	}

	var onOutcome orchestrators.OutcomeFunc
	if !quiet {
		onOutcome = printProgress
	}

	return orchestrators.NewBatchOrchestrator(
		newCredentialStore(cfg, false),
		factory,
		htmlparse.NewResultParser(htmlparse.DefaultMarkerAttribute),
		throttle,
		orchestrators.BatchOrchestratorConfig{
			Domain:       cfg.Domain,
			DownloadRoot: cfg.DownloadDir,
			Limit:        cfg.Limit,
			Workers:      cfg.Workers,
			Logger:       logger,
			OnOutcome:    onOutcome,
		},
	), nil
}

func printProgress(index, total int, o entities.DownloadOutcome) {
	switch o.Kind {
	case entities.OutcomeSuccess:
		fmt.Printf("[%d/%d] %s: saved %d bytes to %s (sha256 %s)\n", index+1, total, o.Identifier, o.BytesWritten, o.Path, o.SHA256)
	case entities.OutcomeSkippedInvalidSize:
		fmt.Printf("[%d/%d] %s: skipped, only %d bytes\n", index+1, total, o.Identifier, o.BytesWritten)
	case entities.OutcomeSkippedNotFound:
		fmt.Printf("[%d/%d] %s: skipped, not found\n", index+1, total, o.Identifier)
	default:
		fmt.Printf("[%d/%d] %s: failed after %d attempts: %s\n", index+1, total, o.Identifier, o.Attempts, o.Reason)
	}
}

func writeReport(path string, report *orchestrators.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// exitCodeFor maps a run error onto the documented exit codes
func exitCodeFor(ctx context.Context, err error) int {
	var pre *entities.PreconditionError
	var fetchErr *entities.SearchFetchError

	if err == nil {
		return ExitSuccess
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ExitCanceled
	}

	printError("%v", err)
	switch {
	case errors.As(err, &pre):
		return ExitPrecondition
	case errors.As(err, &fetchErr):
		return ExitSearchFailed
	case errors.Is(err, entities.ErrEmptyQuery):
		return ExitInvalidArgs
	default:
		return ExitRunError
	}
}
