package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiroakis/host-management-app/internal/api"
	"github.com/hiroakis/host-management-app/internal/config"
	"github.com/hiroakis/host-management-app/internal/logging"
	"github.com/hiroakis/host-management-app/internal/storage"
	"github.com/hiroakis/host-management-app/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	store, err := storage.Open(storage.Options{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	require.NoError(t, store.InitSchema(context.Background()))

	srv := api.New(config.Default(), store, logging.Discard())
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	c, err := New(ts.URL + "/")
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("localhost:5000")
	assert.Error(t, err)

	c, err := New("http://localhost:5000/", WithHTTPClient(http.DefaultClient))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Same(t, http.DefaultClient, c.httpClient)
}

func TestInventoryRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	for _, role := range []string{"web", "app"} {
		_, err := c.AddRole(ctx, role)
		require.NoError(t, err)
	}
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		m, err := c.AddIP(ctx, ip)
		require.NoError(t, err)
		assert.Equal(t, "OK", m.Message)
		assert.Equal(t, "add ip", m.Request)
	}

	_, err = c.AddHost(ctx, models.HostRecord{HostName: "web01", IP: "10.0.0.1", Roles: []string{"web", "app"}})
	require.NoError(t, err)

	used, err := c.ListIPs(ctx, IPFilter{Used: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, used)

	unused, err := c.ListIPs(ctx, IPFilter{Unused: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2"}, unused)

	byRole, err := c.ListIPs(ctx, IPFilter{Role: "app"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, byRole)

	host, err := c.Host(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "app"}, host.Roles)

	host, err = c.HostByIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "web01", host.HostName)

	hosts, err := c.HostsByRole(ctx, "web")
	require.NoError(t, err)
	require.Len(t, hosts, 1)

	out, err := c.HostsOutput(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1\tweb01\n", out)

	_, err = c.UpdateHost(ctx, "web01", models.HostRecord{HostName: "web02", IP: "10.0.0.2"})
	require.NoError(t, err)

	names, err := c.ListHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web02"}, names)

	host, err = c.Host(ctx, "web02")
	require.NoError(t, err)
	assert.Empty(t, host.Roles)

	_, err = c.UpdateIP(ctx, "10.0.0.1", "10.0.0.9")
	require.NoError(t, err)
	_, err = c.UpdateRole(ctx, "app", "api")
	require.NoError(t, err)

	roles, err := c.ListRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web"}, roles)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{IPs: 2, UsedIPs: 1, UnusedIPs: 1, Roles: 2, Hosts: 1}, *stats)

	_, err = c.DeleteHost(ctx, "web02")
	require.NoError(t, err)
	_, err = c.DeleteIP(ctx, "10.0.0.2")
	require.NoError(t, err)
	_, err = c.DeleteRole(ctx, "api")
	require.NoError(t, err)

	ips, err := c.IPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.IP{{IP: "10.0.0.9"}}, ips)

	records, err := c.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{{RoleName: "web"}}, records)
}

func TestErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Host(ctx, "missing01")
	assert.True(t, IsNotFound(err))

	_, err = c.AddIP(ctx, "300.1.1.1")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Check the format you requested", apiErr.Message)

	_, err = c.Hosts(ctx)
	assert.True(t, IsNotFound(err))

	_, err = c.AddRole(ctx, "web")
	require.NoError(t, err)
	_, err = c.AddRole(ctx, "web")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "HTTP 500")
}
