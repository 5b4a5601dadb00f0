// Package upstream issues outbound HTTP requests to the media APIs.
//
// The client is provider-agnostic: credentials arrive as plain headers from
// the caller. Every call carries a fixed User-Agent and a per-call timeout,
// and is never retried. Non-2xx responses and transport failures are both
// reported as *Failure so the router can mirror them to its caller.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ferro-labs/media-gateway/internal/metrics"
)

// Call kinds used as metric labels.
const (
	KindJSON   = "json"
	KindStream = "stream"
)

// maxJSONBytes caps the size of a metadata response held in memory.
const maxJSONBytes = 16 << 20

const maxRedirects = 10

// RedirectError is returned when a redirect hop is refused by the call's
// redirect check.
type RedirectError struct {
	URL string
	Err error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s refused: %v", e.URL, e.Err)
}

func (e *RedirectError) Unwrap() error { return e.Err }

// CallOption customises a single upstream call.
type CallOption func(*callOptions)

type callOptions struct {
	checkRedirect func(*url.URL) error
}

// WithRedirectCheck vets every redirect hop before it is followed. A non-nil
// error stops the call with a 502 Failure wrapping a *RedirectError.
func WithRedirectCheck(check func(*url.URL) error) CallOption {
	return func(o *callOptions) { o.checkRedirect = check }
}

// Failure is the error returned for any unsuccessful upstream call.
// StatusCode is the upstream status for API errors, or 500 for transport
// failures; Message is the upstream status text or the transport error.
type Failure struct {
	StatusCode int
	Message    string
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("upstream error (%d): %s", f.StatusCode, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Stream is a successful binary response. Body yields the upstream bytes as
// they arrive and must be closed by the caller; closing it also releases the
// call's timeout.
type Stream struct {
	ContentType        string
	ContentLength      int64 // -1 when unknown
	ContentDisposition string
	ContentEncoding    string
	Body               io.ReadCloser
}

// Client performs upstream calls.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// New creates a Client. A nil httpClient uses a client without a global
// timeout; per-call timeouts are applied through the request context.
func New(httpClient *http.Client, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, userAgent: userAgent}
}

// CallJSON fetches target and returns its body, which must be valid JSON.
// The bytes are returned verbatim so callers can relay them unchanged.
func (c *Client) CallJSON(ctx context.Context, provider, target string, headers map[string]string, timeout time.Duration, opts ...CallOption) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.do(ctx, target, headers, "application/json", false, opts)
	if err != nil {
		observe(provider, KindJSON, "transport_error", start)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observe(provider, KindJSON, "upstream_error", start)
		return nil, statusFailure(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBytes+1))
	if err != nil {
		observe(provider, KindJSON, "transport_error", start)
		return nil, transportFailure(err)
	}
	if len(body) > maxJSONBytes {
		observe(provider, KindJSON, "invalid_body", start)
		return nil, &Failure{StatusCode: http.StatusBadGateway, Message: "upstream response too large", Err: errors.New("response exceeds limit")}
	}
	if !json.Valid(body) {
		observe(provider, KindJSON, "invalid_body", start)
		return nil, &Failure{StatusCode: http.StatusInternalServerError, Message: "upstream returned invalid JSON", Err: errors.New("invalid JSON body")}
	}

	observe(provider, KindJSON, "success", start)
	return json.RawMessage(body), nil
}

// CallStream opens target and returns its body as a Stream without
// buffering it. The timeout bounds the whole transfer. The body is requested
// with identity encoding and never decoded, so the bytes and Content-Length
// seen by the caller are exactly the upstream's.
func (c *Client) CallStream(ctx context.Context, provider, target string, headers map[string]string, timeout time.Duration, opts ...CallOption) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	start := time.Now()
	resp, err := c.do(ctx, target, headers, "", true, opts)
	if err != nil {
		cancel()
		observe(provider, KindStream, "transport_error", start)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		cancel()
		observe(provider, KindStream, "upstream_error", start)
		return nil, statusFailure(resp)
	}

	observe(provider, KindStream, "success", start)
	return &Stream{
		ContentType:        resp.Header.Get("Content-Type"),
		ContentLength:      resp.ContentLength,
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		ContentEncoding:    resp.Header.Get("Content-Encoding"),
		Body:               &cancelBody{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

func (c *Client) do(ctx context.Context, target string, headers map[string]string, accept string, raw bool, opts []CallOption) (*http.Response, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}


	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Failure{StatusCode: http.StatusInternalServerError, Message: err.Error(), Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if raw {
		// An explicit Accept-Encoding turns off the transport's transparent gzip.
		req.Header.Set("Accept-Encoding", "identity")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client(o).Do(req)
	if err != nil {
		var rerr *RedirectError
		if errors.As(err, &rerr) {
			return nil, &Failure{StatusCode: http.StatusBadGateway, Message: rerr.Error(), Err: err}
		}
		return nil, transportFailure(err)
	}
	return resp, nil
}

// client returns the http.Client for one call, with the call's redirect
// check layered over the base client's.
func (c *Client) client(o callOptions) *http.Client {
	if o.checkRedirect == nil {
		return c.httpClient
	}
	hc := *c.httpClient
	base := c.httpClient.CheckRedirect
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if err := o.checkRedirect(req.URL); err != nil {
			return &RedirectError{URL: req.URL.String(), Err: err}
		}
		if base != nil {
			return base(req, via)
		}
		return nil
	}
	return &hc
}

func statusFailure(resp *http.Response) *Failure {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &Failure{StatusCode: resp.StatusCode, Message: text}
}

func transportFailure(err error) *Failure {
	return &Failure{StatusCode: http.StatusInternalServerError, Message: err.Error(), Err: err}
}

func observe(provider, kind, outcome string, start time.Time) {
	metrics.UpstreamRequests.WithLabelValues(provider, kind, outcome).Inc()
	metrics.UpstreamDuration.WithLabelValues(provider, kind).Observe(time.Since(start).Seconds())
}

// cancelBody releases the call's context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
