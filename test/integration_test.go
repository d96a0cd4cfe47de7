package test_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ochairo/triagedl/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/triagedl/internal/domain-orchestrators"
	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/domain/interfaces"
	"github.com/ochairo/triagedl/internal/domain/services"
	"github.com/ochairo/triagedl/internal/external-adapters/htmlparse"
	"github.com/ochairo/triagedl/internal/external-adapters/ratelimit"
	"github.com/ochairo/triagedl/internal/external-adapters/yaml"
)

// fakeSandbox serves a search page and one behavior per sample
type fakeSandbox struct {
	mu       sync.Mutex
	requests map[string]int
	cookies  []string
}

func newFakeSandbox(t *testing.T) (*fakeSandbox, *httptest.Server) {
	t.Helper()
	fs := &fakeSandbox{requests: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/s", func(w http.ResponseWriter, r *http.Request) {
		fs.hit(r)
		if r.URL.Query().Get("q") != "family:foo" || r.URL.Query().Get("limit") != "500" {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`<html><body><table>
			<tr data-sample-id="a1"><td>a1</td></tr>
			<tr data-sample-id="a2"><td>a2</td></tr>
			<tr data-sample-id="a3"><td>a3</td></tr>
			<tr data-sample-id="a1"><td>duplicate</td></tr>
			<tr data-sample-id="a4"><td>a4</td></tr>
		</table></body></html>`))
	})
	mux.HandleFunc("/samples/a1/sample.zip", func(w http.ResponseWriter, r *http.Request) {
		fs.hit(r)
		_, _ = w.Write(bytes.Repeat([]byte("1"), 2048))
	})
	mux.HandleFunc("/samples/a2/sample.zip", func(w http.ResponseWriter, r *http.Request) {
		fs.hit(r)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/samples/a3/sample.zip", func(w http.ResponseWriter, r *http.Request) {
		fs.hit(r)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/samples/a4/sample.zip", func(w http.ResponseWriter, r *http.Request) {
		fs.hit(r)
		_, _ = w.Write([]byte("<html>login required</html>"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fs, server
}

func (f *fakeSandbox) hit(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.URL.Path]++
	if c, err := r.Cookie(entities.CredentialSession); err == nil {
		f.cookies = append(f.cookies, c.Value)
	}
}

func (f *fakeSandbox) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

type pipeline struct {
	orch *orchestrators.BatchOrchestrator
	root string
}

func newPipeline(t *testing.T, baseURL string, workers int) *pipeline {
	t.Helper()
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "credentials.yaml")
	required := entities.AuthSchemeCookie.RequiredKeys()

	store := yaml.NewCredentialStore(credsPath, required)
	err := store.Save(context.Background(), &entities.CredentialBundle{
		Domain: "tria.ge",
		Values: map[string]string{
			entities.CredentialSession:   "session-cookie",
			entities.CredentialCSRFToken: "csrf-cookie",
		},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	factory, err := gateways.NewSessionFactory(gateways.SessionConfig{
		BaseURL:      baseURL,
		RequiredKeys: required,
		Timeout:      10 * time.Second,
		Retry:        services.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewSessionFactory() error = %v", err)
	}

	var throttle orchestrators.Throttle = ratelimit.NewSleepThrottle(time.Millisecond)
	if workers > 1 {
		throttle = ratelimit.NewRateThrottle(time.Millisecond)
	}

	root := filepath.Join(dir, "downloads")
	orch := orchestrators.NewBatchOrchestrator(
		store,
		factory,
		htmlparse.NewResultParser(htmlparse.DefaultMarkerAttribute),
		throttle,
		orchestrators.BatchOrchestratorConfig{
			Domain:       "tria.ge",
			DownloadRoot: root,
			Workers:      workers,
			Logger:       &interfaces.NoOpLogger{},
		},
	)
	return &pipeline{orch: orch, root: root}
}

func TestEndToEnd_MixedOutcomes(t *testing.T) {
	sandbox, server := newFakeSandbox(t)
	p := newPipeline(t, server.URL, 1)

	report, err := p.orch.Run(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantIDs := []entities.SampleIdentifier{"a1", "a2", "a3", "a4"}
	if !reflect.DeepEqual(report.Identifiers, wantIDs) {
		t.Errorf("Identifiers = %v, want %v", report.Identifiers, wantIDs)
	}

	s := report.Summary
	if s.Success != 1 || s.SkippedNotFound != 1 || s.Failed != 1 || s.SkippedInvalidSize != 1 {
		t.Errorf("Summary = %+v", s)
	}
	if len(s.Failures) != 1 || s.Failures[0].Identifier != "a3" || s.Failures[0].Attempts != 5 {
		t.Errorf("Failures = %+v", s.Failures)
	}

	if got := sandbox.count("/samples/a2/sample.zip"); got != 1 {
		t.Errorf("a2 requested %d times, want 1", got)
	}
	if got := sandbox.count("/samples/a3/sample.zip"); got != 5 {
		t.Errorf("a3 requested %d times, want 5", got)
	}
	if got := sandbox.count("/s"); got != 1 {
		t.Errorf("search requested %d times, want 1", got)
	}

	entries, err := os.ReadDir(filepath.Join(p.root, "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a1_sample.zip" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("download dir = %v, want only a1_sample.zip", names)
	}

	for _, c := range sandbox.cookies {
		if c != "session-cookie" {
			t.Errorf("unexpected session cookie %q", c)
		}
	}
	if len(sandbox.cookies) == 0 {
		t.Error("session cookie never sent")
	}
}

func TestEndToEnd_RerunIsIdempotent(t *testing.T) {
	_, server := newFakeSandbox(t)
	p := newPipeline(t, server.URL, 1)

	first, err := p.orch.Run(context.Background(), "foo")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.orch.Run(context.Background(), "foo")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Errorf("summaries differ:\nfirst  %+v\nsecond %+v", first.Summary, second.Summary)
	}
}

func TestEndToEnd_ParallelMatchesSequential(t *testing.T) {
	_, server := newFakeSandbox(t)

	seq, err := newPipeline(t, server.URL, 1).orch.Run(context.Background(), "foo")
	if err != nil {
		t.Fatal(err)
	}
	par, err := newPipeline(t, server.URL, 3).orch.Run(context.Background(), "foo")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(seq.Summary, par.Summary) {
		t.Errorf("parallel summary %+v differs from sequential %+v", par.Summary, seq.Summary)
	}

	kinds := func(r *orchestrators.RunReport) []string {
		out := make([]string, 0, len(r.Outcomes))
		for _, o := range r.Outcomes {
			out = append(out, string(o.Identifier)+":"+string(o.Kind))
		}
		sort.Strings(out)
		return out
	}
	if !reflect.DeepEqual(kinds(seq), kinds(par)) {
		t.Errorf("outcomes differ: %v vs %v", kinds(seq), kinds(par))
	}
}

func TestEndToEnd_MissingCredentialsSendsNothing(t *testing.T) {
	sandbox, server := newFakeSandbox(t)

	factory, err := gateways.NewSessionFactory(gateways.SessionConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	store := yaml.NewCredentialStore(filepath.Join(t.TempDir(), "none.yaml"), entities.AuthSchemeCookie.RequiredKeys())
	orch := orchestrators.NewBatchOrchestrator(store, factory,
		htmlparse.NewResultParser(htmlparse.DefaultMarkerAttribute),
		ratelimit.NewSleepThrottle(0),
		orchestrators.BatchOrchestratorConfig{Domain: "tria.ge", DownloadRoot: t.TempDir()})

	report, err := orch.Run(context.Background(), "foo")

	if err == nil || report.State != entities.RunStateFailed {
		t.Fatalf("Run() = %v, state %s; want precondition failure", err, report.State)
	}
	if got := sandbox.count("/s"); got != 0 {
		t.Errorf("search requested %d times without credentials", got)
	}
}
