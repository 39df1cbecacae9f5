package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// maxBodySize caps upstream response bodies. Market data payloads are
// small; anything past this is a misbehaving upstream.
const maxBodySize = 8 << 20

// StatusError is returned for non-2xx upstream responses. The body is
// preserved so rate-limit payloads can still be inspected by callers.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Provider, e.Status)
}

// statusLabel turns an upstream error into a metric label value.
func statusLabel(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return strconv.Itoa(se.Status)
	}
	return "network"
}

// Client is a JSON GET client for one upstream provider. Authentication is
// injected per request since each provider places credentials differently.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	auth    func(*http.Request)
}

// NewClient creates a provider client. auth may be nil for providers that
// carry credentials in the transport (OAuth) or need none.
func NewClient(name, baseURL string, httpClient *http.Client, auth func(*http.Request)) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		auth:    auth,
	}
}

// Name returns the provider name this client serves.
func (c *Client) Name() string { return c.name }

// Get performs one GET against baseURL + endpoint with the given query
// parameters and returns the raw body.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Provider: c.name,
			Status:   resp.StatusCode,
			Message:  errorMessage(body),
		}
	}
	return body, nil
}

// FetchFunc adapts a Get call to the Fetcher's upstream callback shape.
func (c *Client) FetchFunc(endpoint string, params map[string]string) FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		return c.Get(ctx, endpoint, params)
	}
}

// errorMessage pulls a human-readable message out of an upstream error
// body. Providers disagree on shape, so several paths are tried.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// BearerAuth returns an auth injector that sets an Authorization header.
func BearerAuth(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// QueryAuth returns an auth injector that appends the credential as a
// query parameter, the scheme used by taapi and cryptorank.
func QueryAuth(param, value string) func(*http.Request) {
	return func(r *http.Request) {
		q := r.URL.Query()
		q.Set(param, value)
		r.URL.RawQuery = q.Encode()
	}
}
