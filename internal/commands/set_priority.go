package commands

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SetPriority re-prioritizes a ticket. No side effects beyond the field
// write.
type SetPriority struct {
	Priority domain.TicketPriority
}

func (c SetPriority) Apply(ctx context.Context, logs LogStore, ticket *domain.Ticket, performedBy string) (*domain.Ticket, error) {
	log := &domain.TicketActionLog{
		ActionType:        domain.ActionChangePriority,
		OldValue:          string(ticket.Priority),
		NewValue:          string(c.Priority),
		Message:           "Priority changed to: " + string(c.Priority),
		TicketID:          ticket.ID,
		PerformedByUserID: performedBy,
	}
	if err := logs.Create(ctx, log); err != nil {
		return nil, err
	}

	ticket.Priority = c.Priority
	ticket.ActionLogs = append(ticket.ActionLogs, *log)
	return ticket, nil
}
