package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusAssigned TicketStatus = "ASSIGNED"
	TicketStatusResolved TicketStatus = "RESOLVED"

	// TicketStatusUnresolved is a filter-only pseudo-status matching every
	// status except RESOLVED. It is never stored on a ticket.
	TicketStatusUnresolved TicketStatus = "UNRESOLVED"
)

// Storable reports whether the status may be written onto a ticket.
func (s TicketStatus) Storable() bool {
	switch s {
	case TicketStatusPending, TicketStatusAssigned, TicketStatusResolved:
		return true
	}
	return false
}

// ParseTicketStatus validates a status value coming from the API, accepting
// the UNRESOLVED pseudo-status for filtering contexts only.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(raw)
	if status.Storable() || status == TicketStatusUnresolved {
		return status, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", raw)
}

// TicketPriority enumerates urgency, lowest first.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// ParseTicketPriority validates a priority value coming from the API.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	switch priority := TicketPriority(raw); priority {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return priority, nil
	}
	return "", fmt.Errorf("unknown ticket priority %q", raw)
}

// Ticket is the aggregate root for support requests. It owns its action-log
// and reply collections; both are append-only and every mutation of the
// assignee, status, priority or due-date fields must go through the
// corresponding command so the paired audit entry is never skipped.
type Ticket struct {
	ID             string
	ReferenceCode  string
	CustomerName   string
	CustomerEmail  string
	CategoryID     string
	Category       *TicketCategory
	Subject        string
	Message        string
	Priority       TicketPriority
	Status         TicketStatus
	AssignedUserID *string
	AssignedUser   *User
	DueDate        time.Time
	IsDeleted      bool
	IsRead         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ActionLogs     []TicketActionLog
	Replies        []TicketReply
}

// AssignedTo reports whether the ticket is currently assigned to userID.
func (t *Ticket) AssignedTo(userID string) bool {
	return t.AssignedUserID != nil && *t.AssignedUserID == userID
}

// TicketStatistics summarizes ticket counts by lifecycle state.
type TicketStatistics struct {
	Total         int `json:"total"`
	ResolvedCount int `json:"resolvedCount"`
	AssignedCount int `json:"assignedCount"`
}
