// Package client is a Go client for the srvadm HTTP API.
//
//	c, err := client.New("http://localhost:5000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ips, err := c.ListIPs(ctx, client.IPFilter{Unused: true})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hiroakis/host-management-app/models"
)

// Client talks to a srvadm server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid baseURL scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Error is a non-2xx reply from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("srvadm: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("srvadm: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// IPFilter selects which addresses ListIPs returns. At most one field should
// be set; Role wins over Used which wins over Unused.
type IPFilter struct {
	Used   bool
	Unused bool
	Role   string
}

// Mutation is the server's acknowledgement of a change.
type Mutation struct {
	Message string          `json:"message"`
	Request string          `json:"request"`
	Payload json.RawMessage `json:"payload"`
}

// Stats are the inventory counts.
type Stats struct {
	IPs       int `json:"ips"`
	UsedIPs   int `json:"used_ips"`
	UnusedIPs int `json:"unused_ips"`
	Roles     int `json:"roles"`
	Hosts     int `json:"hosts"`
	RoleMaps  int `json:"role_assignments"`
}

// Health is the /health body.
type Health struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// ListIPs returns addresses matching filter.
func (c *Client) ListIPs(ctx context.Context, filter IPFilter) ([]string, error) {
	path := "/api/list/ip"
	switch {
	case filter.Role != "":
		path += "/role/" + url.PathEscape(filter.Role)
	case filter.Used:
		path += "/used"
	case filter.Unused:
		path += "/unused"
	}
	var out []string
	return out, c.getResult(ctx, path, &out)
}

// ListRoles returns every role name.
func (c *Client) ListRoles(ctx context.Context) ([]string, error) {
	var out []string
	return out, c.getResult(ctx, "/api/list/role", &out)
}

// ListHosts returns every host name.
func (c *Client) ListHosts(ctx context.Context) ([]string, error) {
	var out []string
	return out, c.getResult(ctx, "/api/list/host", &out)
}

// IPs returns every IP record.
func (c *Client) IPs(ctx context.Context) ([]models.IP, error) {
	var out []models.IP
	return out, c.getResult(ctx, "/api/ip", &out)
}

// Roles returns every role record.
func (c *Client) Roles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	return out, c.getResult(ctx, "/api/role", &out)
}

// Hosts returns every host with its roles.
func (c *Client) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	var out []models.HostRecord
	return out, c.getResult(ctx, "/api/host", &out)
}

// Host looks up a host by name.
func (c *Client) Host(ctx context.Context, name string) (*models.HostRecord, error) {
	return c.single(ctx, "/api/host/"+url.PathEscape(name))
}

// HostByIP looks up the host bound to ip.
func (c *Client) HostByIP(ctx context.Context, ip string) (*models.HostRecord, error) {
	return c.single(ctx, "/api/ip/"+url.PathEscape(ip))
}

// HostsByRole returns the hosts holding role.
func (c *Client) HostsByRole(ctx context.Context, role string) ([]models.HostRecord, error) {
	var out []models.HostRecord
	return out, c.getResult(ctx, "/api/role/"+url.PathEscape(role), &out)
}

// HostsOutput returns the hosts holding role as /etc/hosts lines.
func (c *Client) HostsOutput(ctx context.Context, role string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/hosts_output/"+url.PathEscape(role), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// Stats returns inventory counts.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.getResult(ctx, "/api/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports server status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Health
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// AddIP registers an address.
func (c *Client) AddIP(ctx context.Context, ip string) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPost, "/api/ip", map[string]string{"ip": ip})
}

// UpdateIP renames an address.
func (c *Client) UpdateIP(ctx context.Context, oldIP, newIP string) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPut, "/api/ip/"+url.PathEscape(oldIP), map[string]string{"ip": newIP})
}

// DeleteIP removes an unused address.
func (c *Client) DeleteIP(ctx context.Context, ip string) (*Mutation, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/ip/"+url.PathEscape(ip), nil)
}

// AddRole registers a role.
func (c *Client) AddRole(ctx context.Context, role string) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPost, "/api/role", map[string]string{"role": role})
}

// UpdateRole renames a role.
func (c *Client) UpdateRole(ctx context.Context, oldName, newName string) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPut, "/api/role/"+url.PathEscape(oldName), map[string]string{"role": newName})
}

// DeleteRole removes a role.
func (c *Client) DeleteRole(ctx context.Context, role string) (*Mutation, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/role/"+url.PathEscape(role), nil)
}

// AddHost registers a host.
func (c *Client) AddHost(ctx context.Context, host models.HostRecord) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPost, "/api/host", hostBody(host))
}

// UpdateHost replaces the host currently named oldName.
func (c *Client) UpdateHost(ctx context.Context, oldName string, host models.HostRecord) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPut, "/api/host/"+url.PathEscape(oldName), hostBody(host))
}

// DeleteHost removes a host.
func (c *Client) DeleteHost(ctx context.Context, name string) (*Mutation, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/host/"+url.PathEscape(name), nil)
}

// hostBody always sends the role key, which the server requires.
func hostBody(host models.HostRecord) models.HostRecord {
	if host.Roles == nil {
		host.Roles = []string{}
	}
	return host
}

func (c *Client) single(ctx context.Context, path string) (*models.HostRecord, error) {
	var out []models.HostRecord
	if err := c.getResult(ctx, path, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &Error{StatusCode: http.StatusNotFound, Message: "Not found"}
	}
	return &out[0], nil
}

func (c *Client) mutate(ctx context.Context, method, path string, body interface{}) (*Mutation, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Mutation
	if err := decodeResult(resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getResult(ctx context.Context, path string, dst interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResult(resp.Body, dst)
}

// do sends a request and turns non-2xx replies into *Error.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to API server: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := &Error{StatusCode: resp.StatusCode}
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			apiErr.Message = body.Message
		}
		return nil, apiErr
	}
	return resp, nil
}

func decodeResult(r io.Reader, dst interface{}) error {
	var wrapper struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(r).Decode(&wrapper); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(wrapper.Result, dst); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
