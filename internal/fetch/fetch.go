package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/gosummarize/internal/errs"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a page body is read.
	DefaultMaxBodyBytes = 5 << 20
	defaultRedirectHops = 5
)

// ErrUnsupportedContentType is wrapped when a page is not HTML.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Client issues exactly one GET per call with a bounded timeout. It never retries.
type Client struct {
	HTTPClient *http.Client
	// UserAgent is sent when UserAgents is nil.
	UserAgent string
	// UserAgents, when set, provides a random User-Agent per request.
	UserAgents *UserAgentPool
	// PerRequestTimeout bounds each request. Zero means DefaultTimeout.
	PerRequestTimeout time.Duration
	// MaxBodyBytes caps the body read. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	// internal limiter initialized on first use when MaxConcurrent > 0
	limiter     chan struct{}
	limiterOnce sync.Once
}

// Response is a fetched page body decoded to UTF-8.
type Response struct {
	URL         string
	ContentType string
	Body        []byte
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches rawURL. Failures are *errs.Error values of kind InvalidArgument
// (bad URL), Network (transport or timeout), UpstreamHTTP (non-2xx) or
// NoContentFound (non-HTML body), all tagged with the fetch stage.
func (c *Client) Get(ctx context.Context, rawURL string) (Response, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Response{}, errs.Wrap(errs.KindInvalidArgument, errs.StageFetch, err, "invalid url")
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(u) || u.Host == "" {
		return Response{}, errs.New(errs.KindInvalidArgument, errs.StageFetch, "unsupported URL %q", rawURL)
	}

	if err := c.acquire(ctx); err != nil {
		return Response{}, errs.Wrap(errs.KindNetwork, errs.StageFetch, err, "waiting for fetch slot")
	}
	defer c.release()

	timeout := c.PerRequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, errs.Wrap(errs.KindInvalidArgument, errs.StageFetch, err, "new request")
	}
	if ua := c.userAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return Response{}, errs.Wrap(errs.KindNetwork, errs.StageFetch, err, "GET "+u.Redacted())
	}
	defer resp.Body.Close()

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Response{}, errs.Upstream(errs.StageFetch, resp.StatusCode, string(snippet))
	}

	contentType := resp.Header.Get("Content-Type")
	if !isAllowedHTMLContentType(contentType) {
		return Response{}, errs.Wrap(errs.KindNoContentFound, errs.StageFetch, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType), u.Redacted())
	}

	// Decode declared or sniffed charset to UTF-8 before parsing.
	r, err := charset.NewReader(io.LimitReader(resp.Body, limit), contentType)
	if err != nil {
		return Response{}, errs.Wrap(errs.KindNoContentFound, errs.StageFetch, err, "decode charset")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return Response{}, errs.Wrap(errs.KindNetwork, errs.StageFetch, err, "read body")
	}
	return Response{URL: resp.Request.URL.String(), ContentType: contentType, Body: b}, nil
}

func (c *Client) userAgent() string {
	if c.UserAgents != nil {
		return c.UserAgents.Random()
	}
	return c.UserAgent
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = defaultRedirectHops
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// Servers that omit the header usually serve HTML; the extractor decides.
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
		// should not happen, but avoid blocking
	}
}
