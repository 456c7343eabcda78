//go:build container
// +build container

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hiroakis/host-management-app/internal/logging"
	"github.com/hiroakis/host-management-app/models"
)

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) tc.Container {
	t.Helper()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	return c
}

func openContainerStorage(t *testing.T, driver, dsn string) *Storage {
	t.Helper()

	s, err := Open(Options{Driver: driver, DSN: dsn, MaxOpenConns: 5, MaxIdleConns: 5, ConnMaxLifetime: time.Minute, Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.Eventually(t, func() bool { return s.Ping(ctx) == nil }, 30*time.Second, 500*time.Millisecond)
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.InitSchema(ctx))
	return s
}

func TestRepositoryMySQL(t *testing.T) {
	ctx := context.Background()
	c := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "mysql:8.4",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_DATABASE":      "srvadm",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(2 * time.Minute),
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("root:secret@tcp(%s:%s)/srvadm?parseTime=true", host, port.Port())
	s := openContainerStorage(t, "mysql", dsn)
	require.True(t, s.lockable())
	runRepositorySuite(t, s)

	// Role names differing only in case are distinct rows.
	repo := s.Repository()
	require.NoError(t, repo.InsertRole(ctx, &models.Role{RoleName: "Mail"}))
	require.NoError(t, repo.InsertRole(ctx, &models.Role{RoleName: "mail"}))
	_, err = repo.Role(ctx, "MAIL")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryPostgres(t *testing.T) {
	ctx := context.Background()
	c := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "secret",
			"POSTGRES_DB":       "srvadm",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(2 * time.Minute),
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:secret@%s:%s/srvadm?sslmode=disable", host, port.Port())
	s := openContainerStorage(t, "postgres", dsn)
	require.True(t, s.lockable())
	runRepositorySuite(t, s)
}
