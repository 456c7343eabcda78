package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hiroakis/host-management-app/internal/storage"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the inventory tables",
	Long: `Create the role, ip, host and role_map tables if they do not exist.

Examples:
  srvadm db init
  SRVADM_DATABASE_DRIVER=mysql SRVADM_DATABASE_HOST=db01 srvadm db init`,
	RunE: runDBInit,
}

func init() {
	dbCmd.AddCommand(dbInitCmd)
}

func runDBInit(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	if err := store.InitSchema(cmd.Context()); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Tables ready (%s)\n", store.Driver())
	return nil
}

// openStore connects to the configured database without migrating it. The
// returned func closes both the store and the log output.
func openStore(ctx context.Context) (*storage.Storage, func(), error) {
	logger, closeLog, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(storage.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.BuildDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Debug:           cfg.Server.Debug,
		Logger:          logger,
	})
	if err != nil {
		_ = closeLog()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		_ = closeLog()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return store, func() {
		_ = store.Close()
		_ = closeLog()
	}, nil
}
