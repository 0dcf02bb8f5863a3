package withsecure

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/nais/withsecure-export/internal/metrics"
	"github.com/nais/withsecure-export/internal/version"
)

// Transport sets the headers every WithSecure request carries and records the
// response status per endpoint. Requests are never retried.
type Transport struct {
	UserAgent string
	Transport http.RoundTripper
}

var _ http.RoundTripper = &Transport{}

func NewTransport(inner http.RoundTripper) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &Transport{
		UserAgent: version.UserAgent(),
		Transport: inner,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the original request
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	metrics.IncAPIStatusCode(endpointLabel(req), resp.StatusCode)
	return resp, nil
}

// tokenTransport sends the client credentials verbatim as Basic auth, where
// x/oauth2 would URL-encode them first, and keeps the last token response
// so failures without a RetrieveError can still report status and body.
type tokenTransport struct {
	credentials Credentials
	transport   http.RoundTripper

	statusCode int
	body       []byte
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.credentials.ClientID, t.credentials.ClientSecret)

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	t.statusCode = resp.StatusCode
	t.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func endpointLabel(req *http.Request) string {
	switch base := path.Base(req.URL.Path); base {
	case "token.oauth2":
		return "token"
	case ResourceOrganizations, ResourceDevices:
		return base
	default:
		return "other"
	}
}
