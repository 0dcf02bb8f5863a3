package withsecure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nais/withsecure-export/internal/otel"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultBaseURL = "https://api.connect.withsecure.com"
	Scope          = "connect.api.read"

	tokenPath         = "/as/token.oauth2"
	organizationsPath = "/organizations/v1/organizations"
	devicesPath       = "/devices/v1/devices"
)

type Client interface {
	Authenticate(ctx context.Context, credentials Credentials) (AccessToken, error)
	ListOrganizations(ctx context.Context, token AccessToken) ([]Organization, error)
	ListDevices(ctx context.Context, token AccessToken, organizationID string) ([]Device, error)
}

type client struct {
	baseURL  string
	tokenURL string
	timeout  time.Duration
	client   *http.Client

	log logrus.FieldLogger
}

type ClientOption func(*client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithTokenURL overrides the token endpoint, which defaults to the one below the base URL.
func WithTokenURL(tokenURL string) ClientOption {
	return func(c *client) {
		c.tokenURL = tokenURL
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.client = httpClient
	}
}

// WithTimeout limits each request. It applies to a copy of the HTTP client,
// never to the one passed to WithHTTPClient.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *client) {
		c.timeout = timeout
	}
}

func New(log logrus.FieldLogger, opts ...ClientOption) Client {
	c := &client{
		baseURL: DefaultBaseURL,
		client: &http.Client{
			Transport: NewTransport(otel.NewHTTPTransport(http.DefaultTransport)),
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokenURL == "" {
		c.tokenURL = c.baseURL + tokenPath
	}
	if c.timeout > 0 {
		httpClient := *c.client
		httpClient.Timeout = c.timeout
		c.client = &httpClient
	}
	return c
}

func (c *client) Authenticate(ctx context.Context, credentials Credentials) (AccessToken, error) {
	conf := clientcredentials.Config{
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		TokenURL:     c.tokenURL,
		Scopes:       []string{Scope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	inner := c.client.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	tokenClient := *c.client
	transport := &tokenTransport{credentials: credentials, transport: inner}
	tokenClient.Transport = transport

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &tokenClient)
	token, err := conf.Token(ctx)
	if err != nil {
		retrieveErr := &oauth2.RetrieveError{}
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &AuthenticationError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
				Err:        err,
			}
		}
		return "", &AuthenticationError{
			StatusCode: transport.statusCode,
			Body:       string(transport.body),
			Err:        err,
		}
	}

	c.log.WithField("expiry", token.Expiry).Debug("received access token")
	return AccessToken(token.AccessToken), nil
}

func (c *client) ListOrganizations(ctx context.Context, token AccessToken) ([]Organization, error) {
	rawOrganizations, err := c.getPaginated(ctx, token, ResourceOrganizations, "", c.baseURL+organizationsPath)
	if err != nil {
		return nil, err
	}

	organizations := make([]Organization, len(rawOrganizations))
	for i, raw := range rawOrganizations {
		if err := json.Unmarshal(raw, &organizations[i]); err != nil {
			return nil, &FetchError{
				Resource:   ResourceOrganizations,
				StatusCode: http.StatusOK,
				Err:        fmt.Errorf("unmarshal organization: %w", err),
			}
		}
	}

	c.log.WithField("count", len(organizations)).Debug("retrieved organizations")
	return organizations, nil
}

func (c *client) ListDevices(ctx context.Context, token AccessToken, organizationID string) ([]Device, error) {
	u, err := url.Parse(c.baseURL + devicesPath)
	if err != nil {
		return nil, &FetchError{Resource: ResourceDevices, OrganizationID: organizationID, Err: err}
	}
	q := u.Query()
	q.Set("organizationId", organizationID)
	u.RawQuery = q.Encode()

	rawDevices, err := c.getPaginated(ctx, token, ResourceDevices, organizationID, u.String())
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(rawDevices))
	for i, raw := range rawDevices {
		if err := json.Unmarshal(raw, &devices[i]); err != nil {
			return nil, &FetchError{
				Resource:       ResourceDevices,
				OrganizationID: organizationID,
				StatusCode:     http.StatusOK,
				Err:            fmt.Errorf("unmarshal device: %w", err),
			}
		}
	}

	c.log.WithFields(logrus.Fields{
		"organization_id": organizationID,
		"count":           len(devices),
	}).Debug("retrieved devices")
	return devices, nil
}

// getPaginated returns the items of initialURL. The API answers with the full
// result set in one page; a nextAnchor in the response is followed until it is empty.
func (c *client) getPaginated(ctx context.Context, token AccessToken, resource, organizationID, initialURL string) ([]json.RawMessage, error) {
	nextURL, err := url.Parse(initialURL)
	if err != nil {
		return nil, &FetchError{Resource: resource, OrganizationID: organizationID, Err: err}
	}

	var items []json.RawMessage
	for {
		page, fetchErr := c.getPage(ctx, token, nextURL.String())
		if fetchErr != nil {
			fetchErr.Resource = resource
			fetchErr.OrganizationID = organizationID
			return nil, fetchErr
		}

		items = append(items, page.Items...)
		if page.NextAnchor == "" {
			return items, nil
		}

		c.log.WithField("anchor", page.NextAnchor).Debug("fetching next page")
		q := nextURL.Query()
		q.Set("anchor", page.NextAnchor)
		nextURL.RawQuery = q.Encode()
	}
}

func (c *client) getPage(ctx context.Context, token AccessToken, url string) (*listResponse, *FetchError) {
	response, err := c.get(ctx, token, url)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &FetchError{StatusCode: response.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if response.StatusCode != http.StatusOK {
		return nil, &FetchError{StatusCode: response.StatusCode, Body: string(body)}
	}

	// encoding/json only reads UTF-8; invalid sequences become U+FFFD
	page := &listResponse{}
	if err := json.Unmarshal(body, page); err != nil {
		return nil, &FetchError{StatusCode: response.StatusCode, Body: string(body), Err: fmt.Errorf("decoding response: %w", err)}
	}
	if page.Items == nil {
		return nil, &FetchError{StatusCode: response.StatusCode, Body: string(body), Err: errors.New("response has no items")}
	}

	return page, nil
}

func (c *client) get(ctx context.Context, token AccessToken, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+string(token))
	req.Header.Set("Accept", "application/json")

	return c.client.Do(req)
}
