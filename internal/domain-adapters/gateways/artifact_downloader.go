package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/domain/interfaces"
	"github.com/ochairo/triagedl/internal/domain/services"
)

// Download defaults
const (
	DefaultMinSize   int64 = 1024
	DefaultChunkSize       = 8 * 1024
)

const reasonCanceled = "canceled"

// DownloaderOptions tunes an ArtifactDownloader
type DownloaderOptions struct {
	Retry     services.RetryPolicy
	MinSize   int64
	ChunkSize int
	Logger    interfaces.Logger
}

// ArtifactDownloader streams sample archives to disk with bounded retries
type ArtifactDownloader struct {
	client    *http.Client
	baseURL   string
	policy    services.RetryPolicy
	minSize   int64
	chunkSize int
	logger    interfaces.Logger
}

// NewArtifactDownloader creates a downloader that uses client for every request
func NewArtifactDownloader(client *http.Client, baseURL string, opts DownloaderOptions) *ArtifactDownloader {
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = services.DefaultRetryPolicy()
	}
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = &interfaces.NoOpLogger{}
	}
	return &ArtifactDownloader{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		policy:    opts.Retry,
		minSize:   opts.MinSize,
		chunkSize: opts.ChunkSize,
		logger:    opts.Logger,
	}
}

// SampleURL returns <base>/samples/<id>/sample.zip
func (d *ArtifactDownloader) SampleURL(id entities.SampleIdentifier) string {
	return fmt.Sprintf("%s/samples/%s/sample.zip", d.baseURL, url.PathEscape(id.String()))
}

// attemptResult is the classified result of one request
type attemptResult struct {
	kind    entities.FailureKind
	reason  string
	written int64
	path    string
	sha256  string
}

// Download fetches one artifact into destDir. It never returns an error;
// every failure is reported through the outcome.
func (d *ArtifactDownloader) Download(ctx context.Context, id entities.SampleIdentifier, destDir string) entities.DownloadOutcome {
	if !id.Valid() {
		return entities.Failed(id, entities.FailureFatal, entities.ErrInvalidIdentifier.Error(), 0)
	}

	sampleURL := d.SampleURL(id)
	finalPath := filepath.Join(destDir, id.FileName())

	var last attemptResult
	attempts := 0
	for attempts < d.policy.MaxAttempts {
		attempts++
		d.logger.Debug("download.attempt",
			interfaces.F("id", id.String()),
			interfaces.F("attempt", attempts),
			interfaces.F("url", sampleURL))

		last = d.attempt(ctx, sampleURL, id, destDir, finalPath)
		if ctx.Err() != nil && last.kind != entities.FailureNone {
			return entities.Failed(id, entities.FailureFatal, reasonCanceled, attempts)
		}

		switch last.kind {
		case entities.FailureNone:
			if last.path == "" {
				return entities.InvalidSize(id, last.written, attempts)
			}
			outcome := entities.Succeeded(id, last.written, last.path, attempts)
			outcome.SHA256 = last.sha256
			return outcome
		case entities.FailureNotFound:
			return entities.NotFound(id, attempts)
		case entities.FailureRateLimited:
			return entities.Failed(id, entities.FailureRateLimited, "rate limited", attempts)
		case entities.FailureFatal:
			return entities.Failed(id, entities.FailureFatal, last.reason, attempts)
		}

		if attempts >= d.policy.MaxAttempts {
			break
		}
		decision := d.policy.ShouldRetry(attempts, last.kind)
		if !decision.Retry {
			break
		}
		d.logger.Warn("download.retry",
			interfaces.F("id", id.String()),
			interfaces.F("attempt", attempts),
			interfaces.F("kind", string(last.kind)),
			interfaces.F("reason", last.reason),
			interfaces.F("delay", decision.Delay.String()))
		if err := sleepContext(ctx, decision.Delay); err != nil {
			return entities.Failed(id, entities.FailureFatal, reasonCanceled, attempts)
		}
	}

	return entities.Failed(id, last.kind, last.reason, attempts)
}

// attempt performs one GET and, on 2xx, stores the body
func (d *ArtifactDownloader) attempt(ctx context.Context, sampleURL string, id entities.SampleIdentifier, destDir, finalPath string) attemptResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sampleURL, nil)
	if err != nil {
		return attemptResult{kind: entities.FailureFatal, reason: fmt.Sprintf("failed to create request: %v", err)}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, entities.ErrTooManyRedirects) {
			return attemptResult{kind: entities.FailureTransient, reason: entities.ErrTooManyRedirects.Error()}
		}
		return attemptResult{kind: entities.FailureTransient, reason: err.Error()}
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if kind := services.ClassifyStatus(resp.StatusCode); kind != entities.FailureNone {
		return attemptResult{kind: kind, reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	return d.store(resp.Body, id, destDir, finalPath)
}

// store streams body into a temp file and renames it into place when it
// meets the minimum size. The temp file never survives a failure.
func (d *ArtifactDownloader) store(body io.Reader, id entities.SampleIdentifier, destDir, finalPath string) attemptResult {
	tmpPath := filepath.Join(destDir, fmt.Sprintf(".%s.%s.part", id.FileName(), uuid.NewString()))

	//nolint:gosec // G304: tmpPath is built from a validated identifier under destDir
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return attemptResult{kind: entities.FailureFatal, reason: fmt.Sprintf("failed to create file: %v", err)}
	}

	digest := newDigestWriter(out)
	written, readErr, writeErr := copyChunks(digest, body, d.chunkSize)
	closeErr := out.Close()

	switch {
	case writeErr != nil:
		removeQuietly(tmpPath)
		return attemptResult{kind: entities.FailureFatal, reason: fmt.Sprintf("failed to write file: %v", writeErr), written: written}
	case readErr != nil:
		removeQuietly(tmpPath)
		return attemptResult{kind: entities.FailureTransient, reason: fmt.Sprintf("failed to read body: %v", readErr), written: written}
	case closeErr != nil:
		removeQuietly(tmpPath)
		return attemptResult{kind: entities.FailureFatal, reason: fmt.Sprintf("failed to write file: %v", closeErr), written: written}
	}

	if written < d.minSize {
		removeQuietly(tmpPath)
		return attemptResult{written: written}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		removeQuietly(tmpPath)
		return attemptResult{kind: entities.FailureFatal, reason: fmt.Sprintf("failed to move file into place: %v", err), written: written}
	}
	return attemptResult{written: written, path: finalPath, sha256: digest.Sum()}
}

// copyChunks copies src to dst through a fixed-size buffer, keeping read and
// write failures apart so they can be classified differently.
func copyChunks(dst io.Writer, src io.Reader, chunkSize int) (written int64, readErr, writeErr error) {
	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, nil, werr
			}
			if m != n {
				return written, nil, io.ErrShortWrite
			}
		}
		if errors.Is(err, io.EOF) {
			return written, nil, nil
		}
		if err != nil {
			return written, err, nil
		}
	}
}

func removeQuietly(path string) {
	//nolint:errcheck,gosec // G104: Best effort cleanup of a partial file
	os.Remove(path)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
