package commands

import (
	"context"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SetDueDate reschedules a ticket's due date. Rejecting past dates is the
// caller's responsibility before constructing the command.
type SetDueDate struct {
	DueDate time.Time
}

func (c SetDueDate) Apply(ctx context.Context, logs LogStore, ticket *domain.Ticket, performedBy string) (*domain.Ticket, error) {
	log := &domain.TicketActionLog{
		ActionType:        domain.ActionAssignDueDate,
		OldValue:          formatDueDate(ticket.DueDate),
		NewValue:          formatDueDate(c.DueDate),
		Message:           "Due date changed to: " + formatDueDate(c.DueDate),
		TicketID:          ticket.ID,
		PerformedByUserID: performedBy,
	}
	if err := logs.Create(ctx, log); err != nil {
		return nil, err
	}

	ticket.DueDate = c.DueDate
	ticket.ActionLogs = append(ticket.ActionLogs, *log)
	return ticket, nil
}

func formatDueDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
