// Package aur talks to the Arch User Repository: package search over the
// RPC interface and the git clone URL of a package.
package aur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"taur/internal/failure"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://aur.archlinux.org"
	rpcVersion     = "5"
	userAgent      = "taur"

	// The RPC rejects shorter search arguments.
	minSearchLen = 2
)

// Package is the subset of an RPC search result taur uses.
type Package struct {
	Name        string  `json:"Name"`
	PackageBase string  `json:"PackageBase"`
	Version     string  `json:"Version"`
	Description string  `json:"Description"`
	URL         string  `json:"URL"`
	NumVotes    int     `json:"NumVotes"`
	Popularity  float64 `json:"Popularity"`
	OutOfDate   *int64  `json:"OutOfDate"`
	Maintainer  *string `json:"Maintainer"`
}

type rpcResponse struct {
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	ResultCount int       `json:"resultcount"`
	Results     []Package `json:"results"`
	Error       string    `json:"error"`
}

func cloneURL(base, name string) string {
	return base + "/" + url.PathEscape(name) + ".git"
}

type Client struct {
	baseURL string
	http    *http.Client
	group   singleflight.Group
}

type Option func(*Client)

// WithBaseURL points the client at another AUR instance (or a test server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout bounds each request. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &loggingRoundTripper{base: http.DefaultTransport},
		},
	}
	for _, apply := range opts {
		if apply != nil {
			apply(c)
		}
	}
	return c
}

// CloneURL returns the git URL of a package base on the client's AUR instance.
func (c *Client) CloneURL(name string) string {
	return cloneURL(c.baseURL, name)
}

// Search returns the packages whose name or description matches expr,
// sorted by name. Concurrent identical searches share one request.
func (c *Client) Search(ctx context.Context, expr string) ([]Package, error) {
	expr = strings.TrimSpace(expr)
	if len(expr) < minSearchLen {
		return nil, fmt.Errorf("search expression must be at least %d characters", minSearchLen)
	}

	v, err, shared := c.group.Do(expr, func() (any, error) {
		return c.search(ctx, expr)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("AUR search shared", slog.String("expression", expr))
	}
	return slices.Clone(v.([]Package)), nil
}

func (c *Client) search(ctx context.Context, expr string) ([]Package, error) {
	q := url.Values{}
	q.Set("v", rpcVersion)
	q.Set("type", "search")
	q.Set("arg", expr)
	endpoint := c.baseURL + "/rpc/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("aur search: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var ne net.Error
		switch {
		case ctx.Err() != nil:
			return nil, failure.New(failure.Interrupted, "search", "", err)
		case errors.As(err, &ne) && ne.Timeout():
			return nil, failure.New(failure.Timeout, "search", "", err)
		default:
			return nil, failure.New(failure.RemoteUnreachable, "search", "", err)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("aur search: read response: %w", err)
	}

	var out rpcResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("aur search: %s", resp.Status)
		}
		return nil, fmt.Errorf("aur search: decode response: %w", err)
	}
	if out.Type == "error" || out.Error != "" {
		return nil, fmt.Errorf("aur search: %s", out.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aur search: %s", resp.Status)
	}
	if out.Type != "search" {
		return nil, errors.New("aur search: unexpected response type " + out.Type)
	}

	pkgs := out.Results
	slices.SortStableFunc(pkgs, func(a, b Package) int { return strings.Compare(a.Name, b.Name) })
	return pkgs, nil
}

// loggingRoundTripper emits one debug line per request and response
// (including latency).
type loggingRoundTripper struct {
	base http.RoundTripper
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	slog.Debug("AUR request", slog.String("method", req.Method), slog.String("url", req.URL.String()))
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		slog.Debug("AUR request failed", slog.Duration("duration", dur), slog.String("error", err.Error()))
		return resp, err
	}
	slog.Debug("AUR response", slog.Int("status", resp.StatusCode), slog.Duration("duration", dur))
	return resp, nil
}
