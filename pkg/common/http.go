package common

import (
	"crypto/tls"
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed VERSION
var version string

// UserAgent is sent on every request that doesn't set its own User-Agent.
func UserAgent() string {
	return "SunnyRelay/" + strings.TrimSpace(version)
}

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper and fills in the default user-agent
// unless the caller already set one.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.transport.RoundTrip(req)
	}
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns a default http client with a default user-agent set
func HTTPClient(timeout time.Duration) *http.Client {
	return newClient(http.DefaultTransport, timeout)
}

// InsecureHTTPClient is like HTTPClient but does not verify the server's
// certificate chain or host name.
func InsecureHTTPClient(timeout time.Duration) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // user-configured
	}
	return newClient(t, timeout)
}

func newClient(base http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: base,
			userAgent: UserAgent(),
		},
		Timeout: timeout,
	}
}
