package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the pgx query surface repositories run against. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same repository serves pool-scoped reads and
// transaction-scoped writes.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRepositories bundles the repositories bound to one transaction.
type TxRepositories struct {
	Tickets TicketRepository
	Logs    ActionLogRepository
	Replies ReplyRepository
}

// UnitOfWork runs fn against transaction-scoped repositories: commit when fn
// returns nil, rollback otherwise. All writes staged by fn become durable
// together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx TxRepositories) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pgx-backed unit of work.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx TxRepositories) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := TxRepositories{
		Tickets: NewTicketRepository(tx),
		Logs:    NewActionLogRepository(tx),
		Replies: NewReplyRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
