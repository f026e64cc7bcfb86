package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"typing-chat/internal/domain"
)

type ExchangeRepository interface {
	Create(ctx context.Context, exchange domain.Exchange) error
}

type PgExchangeRepository struct {
	pool *pgxpool.Pool
}

func NewPgExchangeRepository(pool *pgxpool.Pool) *PgExchangeRepository {
	return &PgExchangeRepository{pool: pool}
}

func (r *PgExchangeRepository) Create(ctx context.Context, exchange domain.Exchange) error {
	const query = `
		INSERT INTO exchanges (id, client_ip, prompt_chars, response_chars, status, error_kind, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var errorKind interface{}
	if exchange.ErrorKind != "" {
		errorKind = exchange.ErrorKind
	}

	_, err := r.pool.Exec(ctx, query,
		exchange.ID,
		exchange.ClientIP,
		exchange.PromptChars,
		exchange.ResponseChars,
		exchange.Status,
		errorKind,
		exchange.LatencyMS,
		exchange.CreatedAt,
	)
	return err
}
