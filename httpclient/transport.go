package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"time"

	"github.com/tradewire/exkit/trace"
)

// defaultTimeout bounds a single round-trip when no timeout is given.
const defaultTimeout = 30 * time.Second

// HTTPTransport is the default Transport over net/http. Exchange modules
// that need signing or session reuse supply their own Transport instead.
type HTTPTransport struct {
	client         *nethttp.Client
	defaultHeaders map[string]string
}

// HTTPTransportOption customizes an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying net/http client.
func WithHTTPClient(client *nethttp.Client) HTTPTransportOption {
	return func(t *HTTPTransport) { t.client = client }
}

// WithTimeout sets the per-request timeout on the underlying client.
func WithTimeout(timeout time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) { t.client.Timeout = timeout }
}

// WithDefaultHeaders sets headers applied to every request; per-operation
// headers take precedence.
func WithDefaultHeaders(headers map[string]string) HTTPTransportOption {
	return func(t *HTTPTransport) { t.defaultHeaders = headers }
}

// NewHTTPTransport creates the default transport.
func NewHTTPTransport(opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		client: &nethttp.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PerformRequest executes one HTTP round-trip. A request ID from the
// context (or a fresh one) is propagated via the X-Request-ID header so
// retried attempts of the same dispatch stay correlatable.
func (t *HTTPTransport) PerformRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*RawResult, error) {
	var reader io.Reader = nethttp.NoBody
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, v := range t.defaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get(trace.HeaderXRequestID) == "" {
		req.Header.Set(trace.HeaderXRequestID, trace.EnsureRequestID(ctx))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		// An interrupted body is a transport-level failure even though
		// the status line arrived.
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &RawResult{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}, nil
}
