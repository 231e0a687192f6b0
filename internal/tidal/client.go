package tidal

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

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/harmoniq/internal/shared"
)

const (
	DefaultBaseURL  = "https://openapi.tidal.com/v2"
	maxResponseBody = 4 << 20
	mediaType       = "application/vnd.api+json"
)

var (
	// ErrNoValidCredential is returned before any request when the user has no usable token.
	// It wraps the token source's error, so auth sentinels still match.
	ErrNoValidCredential = errors.New("tidal: no valid credential")

	ErrNoMorePages = errors.New("tidal: no more pages")
)

// APIError is a non-2xx answer from the resource API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tidal: API returned %d: %s", e.StatusCode, e.Body)
}

// TokenSource yields an Authorization header value for a user. [*auth.Manager] implements it.
type TokenSource interface {
	ValidToken(ctx context.Context, userID string) (string, error)
}

// Client calls the Tidal resource API on behalf of application users.
type Client struct {
	base    *url.URL
	tokens  TokenSource
	http    *http.Client
	limiter *rate.Limiter
	country string
	logger  *log.Logger

	// appOnly clients authenticate at the transport and send no per-user header.
	appOnly bool
}

// Option configures a [Client].
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRateLimit paces requests to perSecond; zero or less disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = nil
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithCountryCode sets the countryCode query parameter sent with every request.
func WithCountryCode(code string) Option {
	return func(cl *Client) { cl.country = strings.ToUpper(strings.TrimSpace(code)) }
}

func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a [Client] rooted at baseURL (default [DefaultBaseURL]) that acts for the
// users tokens resolves. A nil tokens is rejected; app-only reads go through [NewCatalog].
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: tidal client needs a token source", shared.ErrInvalidConfig)
	}
	return newClient(baseURL, tokens, opts...)
}

func newClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: tidal api base url %q", shared.ErrInvalidConfig, baseURL)
	}

	c := &Client{
		base:    base,
		tokens:  tokens,
		http:    &http.Client{Timeout: 10 * time.Second},
		country: "US",
		logger:  shared.WithLogger(log.Default(), "component", "tidal"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Me returns the Tidal account linked to userID.
func (c *Client) Me(ctx context.Context, userID string) (*User, error) {
	doc, err := c.get(ctx, userID, "/users/me")
	if err != nil {
		return nil, err
	}
	r, err := single(doc, typeUsers)
	if err != nil {
		return nil, err
	}

	user := &User{ID: r.ID}
	if err := r.Decode(&user.UserAttributes); err != nil {
		return nil, err
	}
	return user, nil
}

// Playlist fetches one playlist by id.
func (c *Client) Playlist(ctx context.Context, userID, playlistID string) (*Playlist, error) {
	doc, err := c.get(ctx, userID, "/playlists/"+url.PathEscape(playlistID))
	if err != nil {
		return nil, err
	}
	r, err := single(doc, typePlaylists)
	if err != nil {
		return nil, err
	}

	pl := &Playlist{ID: r.ID}
	if err := r.Decode(&pl.PlaylistAttributes); err != nil {
		return nil, err
	}
	return pl, nil
}

// UserPlaylists pages through the playlists in the collection of the Tidal user providerUserID.
func (c *Client) UserPlaylists(userID, providerUserID string) *Pager {
	ref := "/userCollections/" + url.PathEscape(providerUserID) + "/relationships/playlists?include=playlists"
	return newPager(c, userID, ref)
}

// PlaylistItems pages through a playlist's items.
func (c *Client) PlaylistItems(userID, playlistID string) *Pager {
	ref := "/playlists/" + url.PathEscape(playlistID) + "/relationships/items?include=items"
	return newPager(c, userID, ref)
}

func (c *Client) page(ctx context.Context, userID, ref string) (*Page, error) {
	doc, err := c.get(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	data, err := doc.resources()
	if err != nil {
		return nil, err
	}
	return &Page{Data: data, Included: doc.Included, Next: doc.Links.Next}, nil
}

func (c *Client) get(ctx context.Context, userID, ref string) (*document, error) {
	u, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}

	var header string
	switch {
	case c.tokens != nil:
		header, err = c.tokens.ValidToken(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoValidCredential, err)
		}
	case !c.appOnly:
		return nil, fmt.Errorf("%w: no token source", ErrNoValidCredential)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", mediaType)
	if header != "" {
		req.Header.Set("Authorization", header)
	}

	c.logger.Debug("tidal request", "user", userID, "path", u.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &doc, nil
}

// resolve turns a path or link into a request URL under the base, adding countryCode.
//
// Absolute links must share the base's origin. Root-relative links from the API omit the base
// path (/v2), which is added back.
func (c *Client) resolve(ref string) (*url.URL, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty link", shared.ErrInvalidArgument)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: link %q", shared.ErrInvalidArgument, ref)
	}

	switch {
	case u.IsAbs():
		if u.Scheme != c.base.Scheme || u.Host != c.base.Host {
			return nil, fmt.Errorf("%w: link %q is not on %s", shared.ErrInvalidArgument, ref, c.base.Host)
		}
	case u.Host != "":
		return nil, fmt.Errorf("%w: link %q is not on %s", shared.ErrInvalidArgument, ref, c.base.Host)
	default:
		path := u.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if c.base.Path != "" && !strings.HasPrefix(path, c.base.Path+"/") {
			path = c.base.Path + path
		}
		u.Scheme, u.Host, u.Path = c.base.Scheme, c.base.Host, path
	}

	if c.country != "" {
		q := u.Query()
		if q.Get("countryCode") == "" {
			q.Set("countryCode", c.country)
			u.RawQuery = q.Encode()
		}
	}
	return u, nil
}

func single(doc *document, typ string) (*Resource, error) {
	data, err := doc.resources()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty %s document", shared.ErrAPIRequest, typ)
	}
	r := data[0]
	if r.Type != "" && r.Type != typ {
		return nil, fmt.Errorf("%w: expected %s, got %s", shared.ErrAPIRequest, typ, r.Type)
	}
	return &r, nil
}
