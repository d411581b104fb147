package domain

import "time"

// ActionType captures which ticket field a command mutated.
type ActionType string

const (
	ActionAssignUser     ActionType = "ASSIGN_USER"
	ActionChangeStatus   ActionType = "CHANGE_STATUS"
	ActionChangePriority ActionType = "CHANGE_PRIORITY"
	ActionAssignDueDate  ActionType = "ASSIGN_DUEDATE"
)

// TicketActionLog is an immutable audit entry describing one field mutation
// on a ticket. Entries are only ever created by commands, never updated or
// deleted, and are displayed newest-first.
type TicketActionLog struct {
	ID                string
	TicketID          string
	ActionType        ActionType
	OldValue          string
	NewValue          string
	Message           string
	PerformedByUserID string
	CreatedAt         time.Time
}
