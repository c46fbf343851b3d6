package integrations

import (
	"encoding/base64"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request to a repository index.
const DefaultTimeout = 10 * time.Second

// NewHTTPClient creates an HTTP client for repository index requests.
// A non-positive timeout selects [DefaultTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Credentials authenticate requests to a private repository index, the way
// composer's auth.json "bearer" and "http-basic" entries do. A token takes
// precedence over a username and password.
type Credentials struct {
	Token    string
	Username string
	Password string
}

// Headers returns the Authorization header for c, or nil if c is empty.
func (c Credentials) Headers() map[string]string {
	switch {
	case c.Token != "":
		return map[string]string{"Authorization": "Bearer " + c.Token}
	case c.Username != "":
		raw := c.Username + ":" + c.Password
		return map[string]string{"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))}
	default:
		return nil
	}
}
