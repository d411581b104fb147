package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload. AssignedUserID and Priority are only honored
// on the admin intake endpoint.
type CreateTicketRequest struct {
	CustomerName   string  `json:"customer_name"`
	CustomerEmail  string  `json:"customer_email"`
	CategoryID     string  `json:"category_id"`
	Subject        string  `json:"subject"`
	Message        string  `json:"message"`
	Priority       *string `json:"priority,omitempty"`
	AssignedUserID *string `json:"assigned_user_id,omitempty"`
}

// AssignUserRequest payload.
type AssignUserRequest struct {
	UserID string `json:"user_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// SetPriorityRequest payload.
type SetPriorityRequest struct {
	Priority string `json:"priority"`
}

// SetDueDateRequest payload.
type SetDueDateRequest struct {
	DueDate time.Time `json:"due_date"`
}

// PerformAllRequest batches several field changes; nil fields are skipped.
type PerformAllRequest struct {
	Priority       *string    `json:"priority,omitempty"`
	AssignedUserID *string    `json:"assigned_user_id,omitempty"`
	Status         *string    `json:"status,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs      []string   `json:"ticket_ids"`
	AssignedUserID string     `json:"assigned_user_id"`
	Priority       *string    `json:"priority,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// ReplyRequest payload.
type ReplyRequest struct {
	Message     string  `json:"message"`
	MessageType *string `json:"message_type,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string                `json:"id"`
	ReferenceCode  string                `json:"reference_code"`
	CustomerName   string                `json:"customer_name"`
	CustomerEmail  string                `json:"customer_email"`
	CategoryID     string                `json:"category_id"`
	CategoryName   string                `json:"category_name,omitempty"`
	Subject        string                `json:"subject"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	AssignedUserID *string               `json:"assigned_user_id"`
	AssignedTo     string                `json:"assigned_to,omitempty"`
	DueDate        *time.Time            `json:"due_date"`
	IsRead         bool                  `json:"is_read"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including the audit trail
// and reply thread, both newest-first.
type TicketDetailResponse struct {
	TicketSummary
	Message    string              `json:"message"`
	ActionLogs []ActionLogResponse `json:"action_logs"`
	Replies    []ReplyResponse     `json:"replies"`
}

// ActionLogResponse is one audit entry.
type ActionLogResponse struct {
	ID                string            `json:"id"`
	ActionType        domain.ActionType `json:"action_type"`
	OldValue          string            `json:"old_value"`
	NewValue          string            `json:"new_value"`
	Message           string            `json:"message"`
	PerformedByUserID string            `json:"performed_by_user_id"`
	CreatedAt         time.Time         `json:"created_at"`
}

// ReplyResponse is one thread entry.
type ReplyResponse struct {
	ID             string                 `json:"id"`
	Message        string                 `json:"message"`
	MessageType    domain.MessageType     `json:"message_type"`
	AuthorType     domain.ReplyAuthorType `json:"author_type"`
	PostedByUserID string                 `json:"posted_by_user_id"`
	CreatedAt      time.Time              `json:"created_at"`
}

// TicketPageResponse is one page of a listing.
type TicketPageResponse struct {
	Items        []TicketSummary `json:"items"`
	TotalRecords int             `json:"total_records"`
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	PageCount    int             `json:"page_count"`
}
