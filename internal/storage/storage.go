// Package storage provides the relational storage layer for srvadm.
//
// The store is built on uptrace/bun and supports three engines:
//   - sqlite (modernc.org/sqlite), the default for single-node installs
//   - postgres (jackc/pgx/v5 stdlib driver)
//   - mysql (go-sql-driver/mysql)
//
// All reads and writes go through a Repository. A Repository is either bound
// to the pooled connection (Storage.Repository) or to a transaction opened by
// Storage.RunInTx. Inventory mutations always use the transactional form.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	// SQL drivers registered for the supported engines.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/hiroakis/host-management-app/internal/config"
	"github.com/hiroakis/host-management-app/models"
)

// Options configures how a Storage connects to its database.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Debug logs every query through Logger at debug level
	Debug  bool
	Logger *slog.Logger
}

// Storage owns the bun database handle for the inventory tables.
type Storage struct {
	db     *bun.DB
	driver string
	logger *slog.Logger
	debug  bool
}

// tables lists the models in creation order.
var tables = []interface{}{
	(*models.Role)(nil),
	(*models.IP)(nil),
	(*models.Host)(nil),
	(*models.RoleMap)(nil),
}

// New creates a Storage from the application configuration. Tables are
// created when database.auto_migrate is set.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	s, err := Open(Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.BuildDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Debug:           cfg.Server.Debug,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := s.InitSchema(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to initialize database schema: %w", err)
		}
	}

	return s, nil
}

// Open opens the database described by opts and returns a Storage backed by
// a long-lived *bun.DB.
func Open(opts Options) (*Storage, error) {
	driverName := opts.Driver
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if opts.Driver == "postgres" {
		driverName = "pgx"
	}

	start := time.Now()
	sqlDB, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen, maxIdle := opts.MaxOpenConns, opts.MaxIdleConns
	// SQLite allows one writer at a time and a deferred transaction that
	// upgrades to a write fails with SQLITE_BUSY instead of waiting. A single
	// connection queues writers in the pool and keeps in-memory databases on
	// one schema.
	if opts.Driver == "sqlite" {
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	bunDB, err := createBunDB(sqlDB, opts.Driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Storage{
		db:     bunDB,
		driver: opts.Driver,
		logger: logger,
		debug:  opts.Debug,
	}
	if opts.Debug {
		bunDB.AddQueryHook(&queryLogger{logger: logger})
	}

	s.debugLog("opened database", "driver", driverName, "duration", time.Since(start), "max_open_conns", maxOpen)
	return s, nil
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and driver.
func createBunDB(sqlDB *sql.DB, driver string) (*bun.DB, error) {
	switch driver {
	case "sqlite":
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// debugLog logs a message only if debug mode is enabled in config
func (s *Storage) debugLog(msg string, args ...any) {
	if s.debug {
		s.logger.Debug(msg, args...)
	}
}

// Driver returns the configured engine name.
func (s *Storage) Driver() string {
	return s.driver
}

// DB exposes the underlying bun handle.
func (s *Storage) DB() *bun.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

// InitSchema creates the inventory tables and their lookup indexes if they do
// not exist yet. It is safe to call repeatedly.
func (s *Storage) InitSchema(ctx context.Context) error {
	for _, model := range tables {
		q := s.db.NewCreateTable().Model(model).IfNotExists()
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		// MySQL compares with a case-insensitive collation by default; names
		// must be case-sensitive.
		if s.db.Dialect().Name() == dialect.MySQL {
			if _, err := s.db.NewRaw("ALTER TABLE ? CONVERT TO CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
				bun.Ident(q.GetTableName())).Exec(ctx); err != nil {
				return fmt.Errorf("set collation on %s: %w", q.GetTableName(), err)
			}
		}
	}

	indexes := []struct {
		name   string
		column string
	}{
		{name: "idx_role_map_host_name", column: "host_name"},
		{name: "idx_role_map_role_name", column: "role_name"},
	}
	for _, idx := range indexes {
		q := s.db.NewCreateIndex().Model((*models.RoleMap)(nil)).Index(idx.name).Column(idx.column)
		// MySQL has no CREATE INDEX IF NOT EXISTS; a repeated run reports a
		// duplicate key name instead.
		if s.db.Dialect().Name() != dialect.MySQL {
			q = q.IfNotExists()
		}
		if _, err := q.Exec(ctx); err != nil {
			if s.db.Dialect().Name() == dialect.MySQL && MapDBError(err) == ErrDuplicate {
				continue
			}
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	s.debugLog("schema ready", "driver", s.driver)
	return nil
}

// Repository returns a repository bound to the connection pool. Use RunInTx
// for anything that writes more than one row.
func (s *Storage) Repository() Repository {
	return s.repo(s.db)
}

// RunInTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise. PostgreSQL and MySQL run at READ
// COMMITTED; SQLite serializes writers itself.
func (s *Storage) RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	var opts *sql.TxOptions
	if s.lockable() {
		opts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return s.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, s.repo(tx))
	})
}

func (s *Storage) repo(idb bun.IDB) *bunRepository {
	return &bunRepository{db: idb, lock: s.lockable()}
}

// lockable reports whether the engine supports SELECT ... FOR UPDATE.
func (s *Storage) lockable() bool {
	return s.db.Dialect().Name() != dialect.SQLite
}

// queryLogger is a bun query hook that writes each statement to the logger.
type queryLogger struct {
	logger *slog.Logger
}

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	attrs := []any{
		slog.String("query", event.Query),
		slog.Duration("duration", time.Since(event.StartTime)),
	}
	if event.Err != nil && event.Err != sql.ErrNoRows {
		h.logger.DebugContext(ctx, "query failed", append(attrs, slog.String("error", event.Err.Error()))...)
		return
	}
	h.logger.DebugContext(ctx, "query", attrs...)
}
