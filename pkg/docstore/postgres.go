package docstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps documents as JSONB rows. Documents must be valid JSON.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects, runs pending migrations, and returns the store.
func NewPostgresStore(ctx context.Context, databaseURL string, maxConns int32, logger *zap.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = maxConns
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 5
	}
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	// The database may still be starting, as it often is under docker compose.
	if err := retry.DoIfRetryable(ctx, retry.StartupConfig(), func() error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger.Named("postgres-store")}
	if err := s.runMigrations(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// runMigrations applies the embedded migrations. It is idempotent.
func (s *PostgresStore) runMigrations() error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "immarkus_schema_migrations"})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		s.logger.Info("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	s.logger.Info("Applied migrations successfully", zap.Uint("version", version))
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM immarkus_documents WHERE key = $1`, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", key, err)
	}
	return body, nil
}

func (s *PostgresStore) Write(ctx context.Context, key string, doc []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	query := `
		INSERT INTO immarkus_documents (key, body, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (key)
		DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, query, key, doc); err != nil {
		return fmt.Errorf("write document %q: %w", key, err)
	}

	s.logger.Debug("Document written", zap.String("key", key), zap.Int("bytes", len(doc)))
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
