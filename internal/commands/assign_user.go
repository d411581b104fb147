package commands

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AssignUser assigns a ticket to a user. Assignment implies the ticket is no
// longer merely pending, so the status is forced to ASSIGNED as a side
// effect.
type AssignUser struct {
	User *domain.User
}

func (c AssignUser) Apply(ctx context.Context, logs LogStore, ticket *domain.Ticket, performedBy string) (*domain.Ticket, error) {
	oldValue := ""
	if ticket.AssignedUserID != nil {
		oldValue = *ticket.AssignedUserID
	}

	log := &domain.TicketActionLog{
		ActionType:        domain.ActionAssignUser,
		OldValue:          oldValue,
		NewValue:          c.User.ID,
		Message:           "Assigned to " + c.User.DisplayName(),
		TicketID:          ticket.ID,
		PerformedByUserID: performedBy,
	}
	if err := logs.Create(ctx, log); err != nil {
		return nil, err
	}

	assigneeID := c.User.ID
	ticket.AssignedUserID = &assigneeID
	ticket.AssignedUser = c.User
	ticket.Status = domain.TicketStatusAssigned
	ticket.ActionLogs = append(ticket.ActionLogs, *log)
	return ticket, nil
}
