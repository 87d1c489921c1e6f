package sunnyportal

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/sunnyrelay/sunnyrelay/pkg/common"
)

// DefaultBaseURL is the public Sunny Portal.
const DefaultBaseURL = "https://sunnyportal.com"

// Configured sets up the portal client.
// It uses lflag to register command-line flags for configuration.
func Configured() *Client {
	baseURL := lflag.String("sunnyportal-url", DefaultBaseURL, "Base URL of the Sunny Portal")
	timeout := lflag.Duration("portal-timeout", 30*time.Second, "Timeout for a single request to the portal")
	insecure := lflag.Bool("portal-insecure-skip-verify", true, "Skip TLS certificate verification for the portal (its certificate does not validate)")

	c := NewClient(DefaultBaseURL, nil)

	lflag.Do(func() {
		u, err := url.Parse(*baseURL)
		if err != nil || u.Host == "" {
			panic(fmt.Sprintf("invalid sunnyportal-url (%s): %v", *baseURL, err))
		}
		c.baseURL = strings.TrimSuffix(*baseURL, "/")
		if *insecure {
			c.client = common.InsecureHTTPClient(*timeout)
		} else {
			c.client = common.HTTPClient(*timeout)
		}
	})

	return c
}
