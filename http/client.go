// Package http provides a client for a blobserve server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/meigma/blobserve"
)

// ErrNotFound is returned when the server reports that a file does not exist.
var ErrNotFound = errors.New("blobserve: file not found")

// Client lists and fetches files from a blobserve server.
type Client struct {
	baseURL string
	client  *nethttp.Client
	headers nethttp.Header
}

// Option configures a Client.
type Option func(*Client)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(c *Client) {
		if headers == nil {
			return
		}
		c.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(nethttp.Header)
		}
		c.headers.Set(key, value)
	}
}

// NewClient creates a Client for the server at baseURL, such as
// "http://127.0.0.1:8888".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = nethttp.DefaultClient
	}
	return c, nil
}

// List returns the descriptors the server reports for its base directory.
func (c *Client) List(ctx context.Context) ([]blobserve.Descriptor, error) {
	resp, err := c.get(ctx, c.baseURL+"/list")
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("list failed: %s", resp.Status)
	}
	var descs []blobserve.Descriptor
	if err := json.NewDecoder(resp.Body).Decode(&descs); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return descs, nil
}

// Open streams the named file. The caller must close the returned reader.
func (c *Client) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" {
		return nil, blobserve.ErrMissingName
	}
	target := c.baseURL + "/file?" + url.Values{"name": {name}}.Encode()
	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case nethttp.StatusOK:
		return resp.Body, nil
	case nethttp.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s failed: %s", name, resp.Status)
	}
}

// ReadFile returns the full contents of the named file.
func (c *Client) ReadFile(ctx context.Context, name string) ([]byte, error) {
	rc, err := c.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (c *Client) get(ctx context.Context, target string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return c.client.Do(req)
}
