package sunnyportal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

const (
	loginPath       = "Templates/Start.aspx"
	homeManagerPath = "homemanager"
	liveViewPath    = "FixedPages/HoManLive.aspx"

	// the login form's ASP.NET control prefix
	loginControl = "ctl00$ContentPlaceHolder1$Logincontrol1$"
	loginButton  = "Anmelden"

	// the portal answers differently to clients it doesn't recognize as a browser
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/71.0.3578.98 Safari/537.36"
)

var (
	// ErrTransport is returned when a request never produced a response.
	ErrTransport = errors.New("sunnyportal transport error")
	// ErrMalformedResponse is returned when the homemanager body isn't JSON.
	ErrMalformedResponse = errors.New("malformed homemanager response")
	// ErrSessionLost is returned when the homemanager body is JSON but lacks
	// the timestamp, which is how the portal answers an expired session.
	ErrSessionLost = errors.New("sunnyportal session lost")
)

// Client talks to the Sunny Portal web frontend. It holds no session state
// itself; every successful Login returns a new Session.
type Client struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewClient returns a Client for the portal at baseURL. The transport and
// timeout of hc are shared by every Session; its cookie jar is not used.
func NewClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		client:  hc,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// Session is an authenticated cookie jar. It is only ever created by Login and
// is never modified afterwards; re-authenticating replaces it entirely.
type Session struct {
	client    *http.Client
	createdAt time.Time
}

// CreatedAt returns when the login that produced this session completed.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func loginForm(creds types.Credentials) url.Values {
	data := url.Values{}
	data.Set("__EVENTTARGET", "")
	data.Set("__EVENTARGUMENT", "")
	data.Set(loginControl+"LoginBtn", loginButton)
	data.Set(loginControl+"txtPassword", creds.Password)
	data.Set(loginControl+"txtUserName", creds.Username)
	data.Set(loginControl+"ServiceAccess", "true")
	// the form rejects posts without these even though we never redirect
	for _, f := range []string{"RedirectURL", "RedirectPlant", "RedirectPage", "RedirectDevice", "RedirectOther", "PlantIdentifier"} {
		data.Set(loginControl+f, "")
	}
	return data
}

// Login submits the portal's login form and returns the resulting session.
// Only transport failures are errors: the portal answers bad credentials with
// a normal page, which surfaces on the first HomeManager call instead.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		client: &http.Client{
			Transport: c.client.Transport,
			Timeout:   c.client.Timeout,
			Jar:       jar,
		},
	}

	req, err := c.newPostFormRequest(ctx, loginPath, loginForm(creds))
	if err != nil {
		return nil, err
	}
	req.Header.Set("SunnyPortalPageCounter", "0")
	req.Header.Set("plantOid", creds.PlantOID)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/"+loginPath)
	req.Header.Set("DNT", "1")
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := sess.client.Do(req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "sunnyportal login failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: login: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		log.Ctx(ctx).DebugContext(ctx, "failed to drain login response", slog.Any("error", err))
	}

	sess.createdAt = c.now()
	log.Ctx(ctx).DebugContext(
		ctx,
		"sunnyportal login complete",
		slog.String("username", creds.Username),
		slog.Int("status", resp.StatusCode),
	)
	return sess, nil
}

// HomeManager fetches the live home manager reading using sess.
func (c *Client) HomeManager(ctx context.Context, sess *Session) (types.HomeManager, error) {
	if sess == nil {
		return types.HomeManager{}, fmt.Errorf("%w: no session", ErrSessionLost)
	}

	params := url.Values{}
	// cache buster
	params.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))

	req, err := c.newGetRequest(ctx, homeManagerPath, params)
	if err != nil {
		return types.HomeManager{}, err
	}
	req.Header.Set("Referer", c.baseURL+"/"+liveViewPath)
	req.Header.Set("DNT", "1")
	req.Header.Set("User-Agent", browserUserAgent)
	// without this the portal redirects to the html page
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := sess.client.Do(req)
	if err != nil {
		return types.HomeManager{}, fmt.Errorf("%w: homemanager: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.HomeManager{}, fmt.Errorf("%w: homemanager body: %w", ErrTransport, err)
	}

	var hm types.HomeManager
	if err := json.Unmarshal(body, &hm); err != nil {
		log.Ctx(ctx).DebugContext(
			ctx,
			"failed to decode homemanager response",
			slog.Any("error", err),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(body), 512)),
		)
		return types.HomeManager{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	log.Ctx(ctx).DebugContext(ctx, "homemanager response", slog.String("body", string(body)))

	if !hm.Valid() {
		return types.HomeManager{}, fmt.Errorf("%w: homemanager response has no timestamp", ErrSessionLost)
	}
	return hm, nil
}

func (c *Client) newPostFormRequest(ctx context.Context, endpoint string, data url.Values) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}

	body := strings.NewReader(data.Encode())
	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) newGetRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}

	u.RawQuery = params.Encode()
	return http.NewRequestWithContext(ctx, "GET", u.String(), nil)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
