package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketDueDateChanged  EventType = "ticket_due_date_changed"
	EventTicketReplied         EventType = "ticket_replied"
	EventTicketsBulkAssigned   EventType = "tickets_bulk_assigned"
)

// Event is published by the lifecycle service strictly after commit; every
// handler is best-effort and must never influence the committed mutation.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket *domain.Ticket
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Ticket     *domain.Ticket
	Assignee   *domain.User
	AssignedBy *domain.User
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    *domain.Ticket
	OldStatus domain.TicketStatus
	NewStatus domain.TicketStatus
	ChangedBy *domain.User
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	Ticket      *domain.Ticket
	OldPriority domain.TicketPriority
	NewPriority domain.TicketPriority
}

// TicketDueDateChangedPayload payload.
type TicketDueDateChangedPayload struct {
	Ticket  *domain.Ticket
	DueDate time.Time
}

// TicketRepliedPayload payload.
type TicketRepliedPayload struct {
	Ticket *domain.Ticket
	Reply  *domain.TicketReply
}

// TicketsBulkAssignedPayload payload.
type TicketsBulkAssignedPayload struct {
	Tickets    []domain.Ticket
	Assignee   *domain.User
	AssignedBy *domain.User
}
