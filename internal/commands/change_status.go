package commands

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ChangeStatus moves a ticket to the given status. No side effects beyond
// the field write.
type ChangeStatus struct {
	Status domain.TicketStatus
}

func (c ChangeStatus) Apply(ctx context.Context, logs LogStore, ticket *domain.Ticket, performedBy string) (*domain.Ticket, error) {
	log := &domain.TicketActionLog{
		ActionType:        domain.ActionChangeStatus,
		OldValue:          string(ticket.Status),
		NewValue:          string(c.Status),
		Message:           "Status changed to: " + string(c.Status),
		TicketID:          ticket.ID,
		PerformedByUserID: performedBy,
	}
	if err := logs.Create(ctx, log); err != nil {
		return nil, err
	}

	ticket.Status = c.Status
	ticket.ActionLogs = append(ticket.ActionLogs, *log)
	return ticket, nil
}
