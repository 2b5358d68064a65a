// Package registry queries the npm registry for published package versions.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error variables for registry errors
var (
	// ErrNetwork is returned when the registry cannot be reached
	ErrNetwork = errors.New("registry request failed")
	// ErrTimeout is returned when a registry request exceeds its deadline
	ErrTimeout = errors.New("registry request timed out")
	// ErrParse is returned when the registry response cannot be parsed
	ErrParse = errors.New("malformed registry response")
)

// DefaultTimeout bounds a single registry request
const DefaultTimeout = 10 * time.Second

// packageMetadata is the subset of the registry's "latest" document we read
type packageMetadata struct {
	Version string `json:"version"`
}

// Client queries a single npm-compatible registry.
type Client struct {
	baseURL string
	http    *RetryableHTTPClient
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *RetryableHTTPClient) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a registry client for the given base URL (e.g.
// "https://registry.npmjs.org"). By default requests are not retried; pass
// WithHTTPClient(NewRetryableHTTPClient(DefaultRetryConfig())) for
// user-requested operations where retries are worth the wait.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.http == nil {
		client.http = NewRetryableHTTPClient(NoRetryConfig())
	}

	return client
}

// LatestVersion fetches the version published under the "latest" dist-tag
// for the named package. Scoped package names are escaped for the URL.
func (c *Client) LatestVersion(ctx context.Context, pkg string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/latest", c.baseURL, url.PathEscape(pkg))

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var meta packageMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	if meta.Version == "" {
		return "", fmt.Errorf("%w: missing version field", ErrParse)
	}

	return meta.Version, nil
}

// DistTags fetches all dist-tags for the named package (latest, beta, ...).
func (c *Client) DistTags(ctx context.Context, pkg string) (map[string]string, error) {
	endpoint := fmt.Sprintf("%s/-/package/%s/dist-tags", c.baseURL, url.PathEscape(pkg))

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var tags map[string]string
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return tags, nil
}

// fetch performs a GET against the registry and classifies failures into the
// package's error taxonomy.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.http.Config().Timeout)
	defer cancel()

	resp, err := c.http.GetWithContext(ctx, endpoint)
	if err != nil {
		if isTimeoutError(err) || errors.Is(err, ErrRequestTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return body, nil
}
