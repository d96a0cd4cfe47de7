package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

// maxSearchPageSize caps how much of a result page is read
const maxSearchPageSize = 32 << 20

// SearchURL builds <base>/s?q=family%3A<term>&limit=<N>.
// Spaces in the term are encoded as %20.
func SearchURL(baseURL string, query entities.SearchQuery) string {
	term := strings.ReplaceAll(url.QueryEscape(query.Family), "+", "%20")
	return fmt.Sprintf("%s/s?q=family%%3A%s&limit=%d", strings.TrimRight(baseURL, "/"), term, query.Limit)
}

// SearchGateway fetches search result pages
type SearchGateway struct {
	client  *http.Client
	baseURL string
}

// NewSearchGateway creates a search gateway using client
func NewSearchGateway(client *http.Client, baseURL string) *SearchGateway {
	return &SearchGateway{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Search issues a single GET for the query. It is not retried.
func (g *SearchGateway) Search(ctx context.Context, query entities.SearchQuery) (string, error) {
	searchURL := SearchURL(g.baseURL, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", &entities.SearchFetchError{URL: searchURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &entities.SearchFetchError{URL: searchURL, Err: err}
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &entities.SearchFetchError{URL: searchURL, StatusCode: resp.StatusCode, Err: entities.ErrAuthRejected}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &entities.SearchFetchError{URL: searchURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchPageSize))
	if err != nil {
		return "", &entities.SearchFetchError{URL: searchURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return string(body), nil
}
