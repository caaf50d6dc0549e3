package inject

import (
	"net/http"

	"warden/metrics"
)

// DefaultHeaderName is the request header the token travels in.
const DefaultHeaderName = "X-CSRF-Token"

// Transport is an http.RoundTripper that sets the CSRF header on every request before
// handing it to Base. Any value the caller already set for that header is replaced.
type Transport struct {
	// Base is the round tripper requests are delegated to. Nil means http.DefaultTransport.
	Base http.RoundTripper
	// Header is the header name. Empty means DefaultHeaderName.
	Header string

	token string
}

// NewTransport returns a Transport that attaches token under header.
func NewTransport(base http.RoundTripper, header, token string) *Transport {
	return &Transport{Base: base, Header: header, token: token}
}

// RoundTrip clones req, sets the header on the clone and delegates to Base. The base's
// response and error are returned as-is.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	out.Header.Set(t.headerName(), t.token)
	metrics.RequestsTokenized.Inc()
	return t.base().RoundTrip(out)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) headerName() string {
	if t.Header == "" {
		return DefaultHeaderName
	}
	return t.Header
}

// WrapClient returns a shallow copy of c whose transport attaches token under header.
// The original client is not modified. A nil c is treated as a zero http.Client.
func WrapClient(c *http.Client, header, token string) *http.Client {
	var base http.RoundTripper
	if c != nil {
		base = c.Transport
	}
	return withTransport(c, NewTransport(base, header, token))
}

// withTransport returns a shallow copy of c that sends through rt
func withTransport(c *http.Client, rt http.RoundTripper) *http.Client {
	var wrapped http.Client
	if c != nil {
		wrapped = *c
	}
	wrapped.Transport = rt
	return &wrapped
}
