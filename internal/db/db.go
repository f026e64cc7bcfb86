package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	// El log de exchanges escribe poco; un pool chico alcanza.
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

const exchangesSchema = `
	CREATE TABLE IF NOT EXISTS exchanges (
		id             UUID PRIMARY KEY,
		client_ip      TEXT,
		prompt_chars   INTEGER NOT NULL,
		response_chars INTEGER NOT NULL,
		status         INTEGER NOT NULL,
		error_kind     TEXT,
		latency_ms     BIGINT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS exchanges_created_at_idx ON exchanges (created_at);
`

// EnsureSchema crea la tabla de exchanges si no existe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, exchangesSchema)
	return err
}
