// Package websearch is a thin client for a web search endpoint returning
// JSON results, plus a static provider for running without one.
package websearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
)

// Result is one search hit. CanonicalURL carries the page's og:url style
// metadata when the endpoint surfaces it.
type Result struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	Snippet      string `json:"snippet"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

// Provider performs a web search for a query.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Option configures the client.
type Option func(*httpProvider)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *httpProvider) {
		p.http = hc
	}
}

// WithAPIKey sets the key sent as the "key" query parameter.
func WithAPIKey(key string) Option {
	return func(p *httpProvider) {
		p.apiKey = key
	}
}

type httpProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a Provider backed by an HTTP JSON endpoint.
func NewClient(endpoint string, opts ...Option) Provider {
	p := &httpProvider{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type searchResponse struct {
	Results []Result `json:"results"`
}

func (p *httpProvider) Search(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: parse endpoint")
	}
	q := u.Query()
	q.Set("q", query)
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: create request")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("websearch: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "websearch: unmarshal response")
	}
	return result.Results, nil
}

// Static is a Provider that fabricates one plausible result per query.
// It stands in when no search endpoint is configured, so the enrichment
// stage stays exercisable end to end. Safe for concurrent use.
type Static struct {
	counter atomic.Int64
}

// Search returns a single synthetic result derived from the query.
func (s *Static) Search(_ context.Context, query string) ([]Result, error) {
	n := s.counter.Add(1)
	return []Result{
		{
			Title:   query + " - Instagram",
			Link:    "https://instagram.com/sample_" + strconv.FormatInt(n, 10),
			Snippet: query + "の公式アカウント",
		},
	}, nil
}
