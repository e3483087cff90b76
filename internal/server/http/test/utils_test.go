//go:build integration

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/google/uuid"

	"github.com/leshachaplin/sitetrack/internal/domain"
)

// Client is a single website visitor. Cookies persist across calls.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(baseURL string, transport http.RoundTripper) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:  baseURL,
		http: &http.Client{Transport: transport, Jar: jar},
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Referer", "https://agency.example/industries/dental")
	req.Header.Set("User-Agent", "sitetrack-integration")

	return req, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, expected int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != expected {
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}
	return nil
}

func (c *Client) Consent(ctx context.Context, analytics bool) error {
	return c.post(ctx, "/v1/consent", map[string]bool{"analytics": analytics}, http.StatusOK)
}

func (c *Client) PageView(ctx context.Context, path, title string) error {
	return c.post(ctx, "/v1/pageview", map[string]string{"path": path, "title": title}, http.StatusAccepted)
}

func (c *Client) Track(ctx context.Context, event string, payload any) error {
	return c.post(ctx, "/v1/events/"+event, payload, http.StatusAccepted)
}

// SessionID returns the visitor's session cookie, empty before the first call.
func (c *Client) SessionID() string {
	u, _ := url.Parse(c.url)
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == "st_sid" {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) Hits(ctx context.Context) ([]domain.Hit, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/debug/sessions/%s/hits", c.SessionID()), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var hits []domain.Hit
	if err = json.NewDecoder(res.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	return hits, nil
}
