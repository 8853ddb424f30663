package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	xhttp "AlertRelay/pkg/http"
)

// Client posts dispatch payloads to the relay endpoint of each channel.
type Client struct {
	baseURL   string
	endpoints map[models.Channel]string
	token     string
	client    *xhttp.Client
}

// Option configures Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the outbound HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a relay client. endpoints maps channel name to a path under baseURL.
func NewClient(baseURL string, endpoints map[string]string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: make(map[models.Channel]string, len(endpoints)),
		client:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
	for ch, path := range endpoints {
		c.endpoints[models.Channel(ch)] = path
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs exactly one POST for the payload's channel. Any transport
// error or non-2xx status is returned as an error.
func (c *Client) Send(ctx context.Context, payload *models.DispatchPayload) error {
	if c.client == nil || c.baseURL == "" {
		return fmt.Errorf("relay client not initialized")
	}
	path, ok := c.endpoints[payload.Channel]
	if !ok {
		return fmt.Errorf("no relay endpoint for channel %q", payload.Channel)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + path,
		Headers: headers,
		Body:    payload,
	}, nil)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

var _ domrepo.Relay = (*Client)(nil)
