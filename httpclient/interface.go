// Package httpclient is the shared request-dispatch core for exchange API
// modules. It enforces per-bucket rate limits, classifies failed attempts,
// and retries only transport-level failures of operations the caller
// declared idempotent. Exchange modules supply the Transport and the
// business-rejection predicate; the core owns admission, classification,
// and the retry loop.
package httpclient

import (
	"context"
	nethttp "net/http"
	"time"
)

// Transport performs one HTTP round-trip. Each exchange module supplies
// its own implementation (signing, sessions, proxies); HTTPTransport is
// the plain default. A non-nil error means the request never produced a
// usable HTTP response.
type Transport interface {
	PerformRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*RawResult, error)
}

// RawResult is the unclassified result of a transport round-trip.
type RawResult struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
}

// RejectionCheck inspects a well-formed 2xx response and reports an
// exchange-level rejection (e.g. a non-zero retCode in the body). The
// shape of such rejections is exchange-specific, so the predicate is
// supplied per operation by the caller. Returning nil means success.
type RejectionCheck func(res *RawResult) error

// Operation describes one logical API call. Idempotent and Bucket are
// required at construction: idempotency is declared by the caller and
// never inferred, and it is the only thing standing between a retry and
// a duplicated order.
type Operation struct {
	Method     string
	URL        string
	Headers    map[string]string
	Body       []byte
	Idempotent bool
	Bucket     string
	Check      RejectionCheck
}

// NewOperation builds an Operation. Method, url and bucket must be
// non-empty; idempotent must be stated explicitly.
func NewOperation(method, url, bucket string, idempotent bool) *Operation {
	return &Operation{
		Method:     method,
		URL:        url,
		Bucket:     bucket,
		Idempotent: idempotent,
	}
}

// WithBody attaches a request payload.
func (o *Operation) WithBody(body []byte) *Operation {
	o.Body = body
	return o
}

// WithHeaders attaches request headers.
func (o *Operation) WithHeaders(headers map[string]string) *Operation {
	o.Headers = headers
	return o
}

// WithCheck attaches the business-rejection predicate.
func (o *Operation) WithCheck(check RejectionCheck) *Operation {
	o.Check = check
	return o
}

func (o *Operation) validate() error {
	switch {
	case o == nil:
		return NewValidationError("operation", "must not be nil")
	case o.Method == "":
		return NewValidationError("method", "must not be empty")
	case o.URL == "":
		return NewValidationError("url", "must not be empty")
	case o.Bucket == "":
		return NewValidationError("bucket", "must not be empty")
	}
	return nil
}

// Response is the terminal successful result of a dispatch.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats records how the dispatch went, including attempts spent on
// retries.
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
}

// Limiter is the admission-control capability the dispatcher needs.
// ratelimit.Registry implements it; ratelimit.Nop disables gating for
// latency-sensitive paths.
type Limiter interface {
	Acquire(ctx context.Context, key string) error
}
