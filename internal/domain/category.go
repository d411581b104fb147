package domain

import "time"

// TicketCategory classifies tickets. Lifecycle is plain CRUD with soft
// deletion; tickets hold a weak reference to their category.
type TicketCategory struct {
	ID        string
	Name      string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
