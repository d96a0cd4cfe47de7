package gateways

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

func testBundle() *entities.CredentialBundle {
	return &entities.CredentialBundle{
		Domain: "tria.ge",
		Values: map[string]string{
			entities.CredentialSession:   "sess-value",
			entities.CredentialCSRFToken: "csrf-value",
		},
	}
}

func TestNewSessionFactory_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SessionConfig
		wantErr bool
	}{
		{"valid https", SessionConfig{BaseURL: "https://tria.ge"}, false},
		{"trailing slash", SessionConfig{BaseURL: "https://tria.ge/"}, false},
		{"bearer", SessionConfig{BaseURL: "https://tria.ge", Scheme: entities.AuthSchemeBearer}, false},
		{"no scheme", SessionConfig{BaseURL: "tria.ge"}, true},
		{"ftp", SessionConfig{BaseURL: "ftp://tria.ge"}, true},
		{"empty", SessionConfig{}, true},
		{"unknown auth", SessionConfig{BaseURL: "https://tria.ge", Scheme: "basic"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSessionFactory(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSessionFactory() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionFactory_OpenRejectsIncompleteBundle(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	factory, err := NewSessionFactory(SessionConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	bundle := &entities.CredentialBundle{Domain: "tria.ge", Values: map[string]string{"session": "x"}}
	_, err = factory.Open(bundle)

	var pre *entities.PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("Open() error = %v, want PreconditionError", err)
	}
	if len(pre.Missing) != 1 || pre.Missing[0] != entities.CredentialCSRFToken {
		t.Errorf("Missing = %v, want [csrftoken]", pre.Missing)
	}

	_, err = factory.Open(nil)
	if !errors.Is(err, entities.ErrNoCredentials) {
		t.Errorf("Open(nil) error = %v, want ErrNoCredentials", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server received %d requests before credentials were checked", hits.Load())
	}
}

func TestSession_SendsCookiesAndBrowserHeaders(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write(bytes.Repeat([]byte("c"), 2048))
	}))
	defer server.Close()

	factory, err := NewSessionFactory(SessionConfig{BaseURL: server.URL, UserAgent: "Mozilla/5.0 test"})
	if err != nil {
		t.Fatal(err)
	}
	session, err := factory.Open(testBundle())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if outcome := session.Download(context.Background(), "a1", t.TempDir()); outcome.Kind != entities.OutcomeSuccess {
		t.Fatalf("Download() = %+v", outcome)
	}

	for name, want := range map[string]string{
		entities.CredentialSession:   "sess-value",
		entities.CredentialCSRFToken: "csrf-value",
	} {
		c, err := got.Cookie(name)
		if err != nil {
			t.Errorf("cookie %s missing", name)
			continue
		}
		if c.Value != want {
			t.Errorf("cookie %s = %q, want %q", name, c.Value, want)
		}
	}

	if ua := got.Header.Get("User-Agent"); ua != "Mozilla/5.0 test" {
		t.Errorf("User-Agent = %q", ua)
	}
	if got.Header.Get("Accept") == "" || got.Header.Get("Accept-Language") == "" {
		t.Errorf("browser headers missing: %v", got.Header)
	}
	if ref := got.Header.Get("Referer"); ref != server.URL+"/" {
		t.Errorf("Referer = %q, want %q", ref, server.URL+"/")
	}
	if auth := got.Header.Get("Authorization"); auth != "" {
		t.Errorf("Authorization = %q, want none for cookie scheme", auth)
	}
}

func TestSession_BearerScheme(t *testing.T) {
	var auth string
	var cookies int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		cookies = len(r.Cookies())
		_, _ = w.Write([]byte(`<div data-sample-id="x"></div>`))
	}))
	defer server.Close()

	factory, err := NewSessionFactory(SessionConfig{BaseURL: server.URL, Scheme: entities.AuthSchemeBearer})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := factory.Open(testBundle()); err == nil {
		t.Fatal("Open() accepted a bundle without auth_token")
	}

	bundle := &entities.CredentialBundle{Domain: "tria.ge", Values: map[string]string{entities.CredentialAuthToken: "tok"}}
	session, err := factory.Open(bundle)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	query, _ := entities.NewSearchQuery("emotet", 0)
	if _, err := session.Search(context.Background(), query); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", auth)
	}
	if cookies != 0 {
		t.Errorf("bearer session sent %d cookies", cookies)
	}
}

func TestSession_BearerNotSentToOtherHosts(t *testing.T) {
	var leaked atomic.Bool
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			leaked.Store(true)
		}
		_, _ = w.Write(bytes.Repeat([]byte("d"), 2048))
	}))
	defer cdn.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, cdn.URL+"/blob", http.StatusFound)
	}))
	defer origin.Close()

	factory, err := NewSessionFactory(SessionConfig{BaseURL: origin.URL, Scheme: entities.AuthSchemeBearer})
	if err != nil {
		t.Fatal(err)
	}
	bundle := &entities.CredentialBundle{Domain: "tria.ge", Values: map[string]string{entities.CredentialAuthToken: "tok"}}
	session, err := factory.Open(bundle)
	if err != nil {
		t.Fatal(err)
	}

	outcome := session.Download(context.Background(), "r1", t.TempDir())
	if outcome.Kind != entities.OutcomeSuccess {
		t.Fatalf("Download() = %+v", outcome)
	}
	// both test servers listen on 127.0.0.1 but on different ports
	if leaked.Load() {
		t.Error("bearer token was forwarded to the redirect target")
	}
}
