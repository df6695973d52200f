// Package postgres persists approval summaries and token metadata.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"approvalScope/internal/model"
)

// Store provides Postgres persistence for summary tables.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertTokens inserts or updates token metadata rows.
func (s *Store) UpsertTokens(ctx context.Context, chainID uint64, tokens []model.TokenMeta) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, token := range tokens {
		batch.Queue(`
			INSERT INTO tokens (
				chain_id, address, name, decimals, is_fallback, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (chain_id, address)
			DO UPDATE SET
				name = EXCLUDED.name,
				decimals = EXCLUDED.decimals,
				is_fallback = EXCLUDED.is_fallback,
				updated_at = now()
		`,
			int64(chainID),
			token.Address,
			token.Name,
			int16(token.Decimals),
			token.Fallback,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSummaryRows inserts or updates (bucket, spender) approval counts.
func (s *Store) UpsertSummaryRows(ctx context.Context, rows []model.SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO approval_summary (
				chain_id, bucket_start, bucket_end, spender, approvals, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (chain_id, bucket_start, spender)
			DO UPDATE SET
				bucket_end = EXCLUDED.bucket_end,
				approvals = EXCLUDED.approvals,
				updated_at = now()
		`,
			int64(row.ChainID),
			int64(row.BucketStart),
			int64(row.BucketEnd),
			row.Spender,
			int64(row.Approvals),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
