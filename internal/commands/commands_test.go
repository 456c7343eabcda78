package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiroakis/host-management-app/internal/api"
	"github.com/hiroakis/host-management-app/internal/config"
	"github.com/hiroakis/host-management-app/internal/logging"
	"github.com/hiroakis/host-management-app/internal/storage"
	"github.com/hiroakis/host-management-app/models"
	"github.com/hiroakis/host-management-app/pkg/client"
)

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SRVADM_LOGGING_LEVEL", "error")

	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func memoryDSN(t *testing.T) string {
	return "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
}

func openTestStore(t *testing.T, dsn string) *storage.Storage {
	t.Helper()

	s, err := storage.Open(storage.Options{Driver: "sqlite", DSN: dsn, Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "srvadm dev")
	assert.Contains(t, out, "Git Commit:")
}

func TestConfigShow(t *testing.T) {
	out, err := execute(t, "config", "show", "--log-format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 5000")
	assert.Contains(t, out, "format: text")
	assert.Contains(t, out, "read_timeout: 30s")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, writeDefaultConfig(path, false))
	assert.Error(t, writeDefaultConfig(path, false))
	require.NoError(t, writeDefaultConfig(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# srvadm configuration"))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), loaded)
}

func TestDBInit(t *testing.T) {
	dsn := memoryDSN(t)
	keep, err := storage.Open(storage.Options{Driver: "sqlite", DSN: dsn, Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = keep.Close() })
	// Hold a connection so the shared in-memory database outlives the
	// command's own store.
	require.NoError(t, keep.Ping(context.Background()))
	t.Setenv("SRVADM_DATABASE_DSN", dsn)

	out, err := execute(t, "db", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Tables ready (sqlite)")

	counts, err := keep.Repository().Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Hosts)
}

func TestQueryCommands(t *testing.T) {
	store := openTestStore(t, memoryDSN(t))
	srv := api.New(config.Default(), store, logging.Discard())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	ctx := context.Background()
	c, err := client.New(ts.URL)
	require.NoError(t, err)
	for _, r := range []string{"web", "app"} {
		_, err := c.AddRole(ctx, r)
		require.NoError(t, err)
	}
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		_, err := c.AddIP(ctx, ip)
		require.NoError(t, err)
	}
	_, err = c.AddHost(ctx, models.HostRecord{HostName: "web01", IP: "10.0.0.1", Roles: []string{"web", "app"}})
	require.NoError(t, err)

	out, err := execute(t, "query", "ips", "--used", "--format", "csv", "--server", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1\n", out)

	out, err = execute(t, "query", "ips", "--format", "space", "--server", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1 10.0.0.2\n", out)

	out, err = execute(t, "query", "roles", "--format", "csv", "--server", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "app,web\n", out)

	out, err = execute(t, "query", "hosts", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "web01")
	assert.Contains(t, out, "web,app")

	out, err = execute(t, "query", "ip", "10.0.0.1", "--format", "space", "--server", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "web01 10.0.0.1 web,app\n", out)

	out, err = execute(t, "query", "hosts-file", "app", "--server", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1\tweb01\n", out)

	out, err = execute(t, "query", "stats", "--format", "json", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"hosts": 1`)

	_, err = execute(t, "query", "host", "missing01", "--server", ts.URL)
	assert.True(t, client.IsNotFound(err))

	_, err = execute(t, "query", "roles", "--format", "xml", "--server", ts.URL)
	assert.ErrorContains(t, err, "unknown format")
}

func TestIntegrityCommands(t *testing.T) {
	dsn := memoryDSN(t)
	store := openTestStore(t, dsn)
	t.Setenv("SRVADM_DATABASE_DSN", dsn)

	ctx := context.Background()
	err := store.RunInTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		if err := repo.InsertRole(ctx, &models.Role{RoleName: "web"}); err != nil {
			return err
		}
		if err := repo.InsertIP(ctx, &models.IP{IP: "10.0.0.1"}); err != nil {
			return err
		}
		if err := repo.InsertHost(ctx, &models.Host{HostName: "web01", IP: "10.0.0.1"}); err != nil {
			return err
		}
		return repo.InsertRoleMaps(ctx, []models.RoleMap{
			{HostName: "web01", RoleName: "web"},
			{HostName: "web01", RoleName: "cache"},
		})
	})
	require.NoError(t, err)

	out, err := execute(t, "integrity", "scan")
	assert.ErrorContains(t, err, "found 2 integrity issues")
	assert.Contains(t, out, "dangling_role: 1")
	assert.Contains(t, out, "unmarked_ip: 1")

	out, err = execute(t, "integrity", "repair")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "--dry-run=false")

	out, err = execute(t, "integrity", "repair", "--dry-run=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 2 operations")

	out, err = execute(t, "integrity", "scan", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_issues": 0`)
}
