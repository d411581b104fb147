package commands

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// LogStore stages an audit entry for insertion within the caller's unit of
// work. Satisfied by the transaction-scoped action-log repository.
type LogStore interface {
	Create(ctx context.Context, log *domain.TicketActionLog) error
}

// Command encapsulates one field mutation on a ticket plus its paired audit
// entry. A command reads the current value, writes the new one, stages the
// log and returns the mutated ticket so commands compose inside a single
// unit of work. Commands never commit and never skip the audit write;
// duplicate-value rejection is the lifecycle service's precondition.
type Command interface {
	Apply(ctx context.Context, logs LogStore, ticket *domain.Ticket, performedBy string) (*domain.Ticket, error)
}
