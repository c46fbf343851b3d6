package packagist

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Masterminds/semver/v3"

	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/integrations"
	"github.com/matzehuels/composer-link/pkg/version"
)

// Client looks up package versions in a composer repository index.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	indexURL string
}

// Option configures a [Client].
type Option func(*options)

type options struct {
	http  *integrations.Client
	creds integrations.Credentials
}

// WithHTTPClient makes the client send its requests through c.
func WithHTTPClient(c *integrations.Client) Option {
	return func(o *options) { o.http = c }
}

// WithCredentials authenticates requests with creds. It is ignored when
// [WithHTTPClient] supplies a preconfigured client.
func WithCredentials(creds integrations.Credentials) Option {
	return func(o *options) { o.creds = creds }
}

// NewClient creates a client for the index at indexURL, the full URL of the
// index document (e.g. https://repo.example.com/packages.json).
//
// It fails with INVALID_CONFIGURATION unless indexURL is an absolute http or
// https URL. No request is made.
func NewClient(indexURL string, opts ...Option) (*Client, error) {
	if err := cerrors.ValidateIndexURL(indexURL); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.http == nil {
		o.http = integrations.NewClient(nil, o.creds.Headers())
	}
	return &Client{Client: o.http, indexURL: indexURL}, nil
}

// IndexURL returns the index document URL the client reads.
func (c *Client) IndexURL() string { return c.indexURL }

// LatestVersion returns the most recent version of pkg published in the
// index, or nil if the index does not list pkg.
//
// Version keys are ordered naturally ("1.10.0" after "1.2.0") and the last
// one wins. It makes exactly one request.
//
// Returns:
//   - AUTH_FAILED (10401) for a 401 response
//   - INDEX_NOT_FOUND (10402) for a 404 response
//   - REMOTE_RETRIEVE_FAILED (10000 + status) for any other non-200 response
//   - NETWORK_ERROR when the request could not be made
//   - PARSE_ERROR when the body is not an index document
//   - VERSION_PARSE_ERROR when the latest key is not a version
func (c *Client) LatestVersion(ctx context.Context, pkg string) (*semver.Version, error) {
	pkg = strings.TrimSpace(pkg)

	var data indexResponse
	if err := c.Get(ctx, c.indexURL, &data); err != nil {
		return nil, err
	}

	versions, ok := data.Packages[pkg]
	if !ok || len(versions) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(versions))
	for k := range versions {
		keys = append(keys, k)
	}
	return version.Parse(version.Latest(keys))
}

type indexResponse struct {
	Packages map[string]map[string]json.RawMessage `json:"packages"`
}
