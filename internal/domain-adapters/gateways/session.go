package gateways

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/domain/interfaces"
	"github.com/ochairo/triagedl/internal/domain/interfaces/gateways"
	"github.com/ochairo/triagedl/internal/domain/services"
)

// Session defaults
const (
	DefaultMaxRedirects = 30
	DefaultTimeout      = 2 * time.Minute
)

// SessionConfig configures the sessions built by SessionFactory
type SessionConfig struct {
	BaseURL      string
	Scheme       entities.AuthScheme
	RequiredKeys []string
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	Retry        services.RetryPolicy
	MinSize      int64
	ChunkSize    int
	Logger       interfaces.Logger

	// Transport overrides the underlying round tripper. Nil uses
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// SessionFactory opens authenticated sessions against the sample site
type SessionFactory struct {
	cfg  SessionConfig
	base *url.URL
}

// NewSessionFactory validates cfg and fills in defaults
func NewSessionFactory(cfg SessionConfig) (*SessionFactory, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", cfg.BaseURL)
	}

	if cfg.Scheme == "" {
		cfg.Scheme = entities.AuthSchemeCookie
	}
	if !cfg.Scheme.Valid() {
		return nil, fmt.Errorf("unknown auth scheme %q", cfg.Scheme)
	}
	if len(cfg.RequiredKeys) == 0 {
		cfg.RequiredKeys = cfg.Scheme.RequiredKeys()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = services.DefaultRetryPolicy()
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = DefaultMinSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = &interfaces.NoOpLogger{}
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}

	cfg.BaseURL = base.String()
	return &SessionFactory{cfg: cfg, base: base}, nil
}

// Open builds the HTTP client for one run. The bundle must carry every
// required key; nothing is sent upstream before that check passes.
func (f *SessionFactory) Open(bundle *entities.CredentialBundle) (gateways.SampleSession, error) {
	if bundle == nil {
		return nil, &entities.PreconditionError{Err: entities.ErrNoCredentials}
	}
	if missing := bundle.Missing(f.cfg.RequiredKeys); len(missing) > 0 {
		return nil, &entities.PreconditionError{Domain: bundle.Domain, Missing: missing}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &headerTransport{
		base: f.cfg.Transport,
		host: f.base.Host,
		headers: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.9"},
			"Referer":         {f.cfg.BaseURL + "/"},
		},
	}
	if f.cfg.UserAgent != "" {
		transport.headers.Set("User-Agent", f.cfg.UserAgent)
	}

	switch f.cfg.Scheme {
	case entities.AuthSchemeBearer:
		transport.bearer, _ = bundle.Get(entities.CredentialAuthToken)
	default:
		cookies := make([]*http.Cookie, 0, len(bundle.Values))
		for _, name := range bundle.Names() {
			v, _ := bundle.Get(name)
			cookies = append(cookies, &http.Cookie{Name: name, Value: v, Path: "/"})
		}
		jar.SetCookies(f.base, cookies)
	}

	maxRedirects := f.cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   f.cfg.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return entities.ErrTooManyRedirects
			}
			return nil
		},
	}

	return &TriageSession{
		search: NewSearchGateway(client, f.cfg.BaseURL),
		downloader: NewArtifactDownloader(client, f.cfg.BaseURL, DownloaderOptions{
			Retry:     f.cfg.Retry,
			MinSize:   f.cfg.MinSize,
			ChunkSize: f.cfg.ChunkSize,
			Logger:    f.cfg.Logger,
		}),
	}, nil
}

// TriageSession is an opened, immutable session
type TriageSession struct {
	search     *SearchGateway
	downloader *ArtifactDownloader
}

// Search fetches the result page for query
func (s *TriageSession) Search(ctx context.Context, query entities.SearchQuery) (string, error) {
	return s.search.Search(ctx, query)
}

// Download fetches one artifact into destDir
func (s *TriageSession) Download(ctx context.Context, id entities.SampleIdentifier, destDir string) entities.DownloadOutcome {
	return s.downloader.Download(ctx, id, destDir)
}

// headerTransport adds the browser header set to every request. The bearer
// token is only sent to the configured host, never to redirect targets.
type headerTransport struct {
	base    http.RoundTripper
	host    string
	headers http.Header
	bearer  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	for name, values := range t.headers {
		if out.Header.Get(name) == "" {
			out.Header[name] = values
		}
	}
	if t.bearer != "" && out.URL.Host == t.host {
		out.Header.Set("Authorization", "Bearer "+t.bearer)
	}
	return t.base.RoundTrip(out)
}
