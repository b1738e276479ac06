package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/nuam/calificaciones/internal/common"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Database owns the connection pool and the SQL dialect used to build queries.
type Database struct {
	DB      *sql.DB
	Dialect string
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// Open connects to postgres through a pgx pool or to a sqlite file, depending on cfg.Driver.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case common.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case common.DriverSQLite, "":
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Database, error) {
	logger.Info("connecting to database", "driver", cfg.Driver)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "calificaciones"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database", "driver", cfg.Driver)
	return &Database{
		DB:      stdlib.OpenDBFromPool(pool),
		Dialect: dialect.Postgres,
		pool:    pool,
		logger:  logger,
	}, nil
}

func openSQLite(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Database, error) {
	logger.Info("opening sqlite database", "dsn", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to ping sqlite database", "error", err)
		return nil, err
	}
	return &Database{DB: db, Dialect: dialect.SQLite, logger: logger}, nil
}

// Migrate creates or updates every table with ent's migration engine.
func (d *Database) Migrate(ctx context.Context) error {
	drv := entsql.OpenDB(d.Dialect, d.DB)
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		d.logger.Error("schema migration failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	d.logger.Info("schema migrated", "tables", len(Tables))
	return nil
}

// Close closes the database connections gracefully
func (d *Database) Close() {
	d.logger.Info("closing database connections")
	if err := d.DB.Close(); err != nil {
		d.logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func (d *Database) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.DB.PingContext(ctx); err != nil {
		return err
	}
	d.logger.Debug("database ping successful")
	return nil
}

// Repositories returns repositories bound to the pool.
func (d *Database) Repositories() *Repositories {
	return NewRepositories(d.DB, d.Dialect, d.logger)
}

// WithTx runs fn inside one transaction. fn's error rolls it back.
func (d *Database) WithTx(ctx context.Context, fn func(r *Repositories) error) (err error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return common.DatabaseError("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(NewRepositories(tx, d.Dialect, d.logger)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			d.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.DatabaseError("commit transaction", err)
	}
	return nil
}

// Counts returns the row count of every table, for health reporting.
func (d *Database) Counts(ctx context.Context) (map[string]int, error) {
	b := entsql.Dialect(d.Dialect)
	out := make(map[string]int, len(Tables))
	for _, t := range Tables {
		query, args := b.Select(entsql.Count("*")).From(b.Table(t.Name)).Query()
		var n int
		if err := d.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t.Name, err)
		}
		out[t.Name] = n
	}
	return out, nil
}

// Repositories groups the repositories sharing one DBTX.
type Repositories struct {
	Companies    CompanyRepository
	Owners       OwnerRepository
	Movements    MovementRepository
	Credits      CreditRepository
	Certificates CertificateRepository
	Files        FileRepository
}

func NewRepositories(db DBTX, dialectName string, logger *slog.Logger) *Repositories {
	if logger == nil {
		logger = slog.Default()
	}
	base := store{db: db, dialect: dialectName, logger: logger}
	return &Repositories{
		Companies:    &companyRepo{store: base},
		Owners:       &ownerRepo{store: base},
		Movements:    &movementRepo{store: base},
		Credits:      &creditRepo{store: base},
		Certificates: &certificateRepo{store: base},
		Files:        &fileRepo{store: base},
	}
}

// store carries what every repository needs to build and run queries.
type store struct {
	db      DBTX
	dialect string
	logger  *slog.Logger
}

func (s store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s store) exec(ctx context.Context, q entsql.Querier) error {
	query, args := q.Query()
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
