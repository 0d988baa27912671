package idempotency

import (
	"context"
	"errors"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store remembers processed command keys so redelivered messages are
// handled once.
type Store struct {
	q   Querier
	log *log.Logger
}

func NewStore(q Querier, logger *log.Logger) *Store {
	return &Store{q: q, log: log.OrNop(logger)}
}

func (s *Store) Save(ctx context.Context, key, commandType string, succeeded bool) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO processed_commands (key, command_type, succeeded)
		VALUES ($1,$2,$3)
		ON CONFLICT (key) DO NOTHING`, key, commandType, succeeded)
	if err != nil {
		s.log.Error("failed to save idempotency key", log.Str("key", key), log.Err(err))
		return err
	}

	return nil
}

type Result struct {
	CommandType string
	Succeeded   bool
	Found       bool
}

func (s *Store) Get(ctx context.Context, key string) (*Result, error) {
	var r Result
	err := s.q.QueryRow(ctx, `
		SELECT command_type, succeeded FROM processed_commands
		WHERE key = $1 AND ttl_at > now()`, key).Scan(&r.CommandType, &r.Succeeded)
	if errors.Is(err, pgx.ErrNoRows) {
		s.log.Debug("idempotency key not found", log.Str("key", key))
		return &Result{Found: false}, nil
	}
	if err != nil {
		s.log.Error("failed to get idempotency key", log.Str("key", key), log.Err(err))
		return nil, err
	}
	r.Found = true

	return &r, nil
}
