package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ActionLogRepository stores ticket audit entries. Insert-only: entries are
// never updated or deleted.
type ActionLogRepository interface {
	Create(ctx context.Context, log *domain.TicketActionLog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketActionLog, error)
}

type actionLogRepository struct {
	db DB
}

// NewActionLogRepository builds the repository over a pool or transaction.
func NewActionLogRepository(db DB) ActionLogRepository {
	return &actionLogRepository{db: db}
}

func (r *actionLogRepository) Create(ctx context.Context, log *domain.TicketActionLog) error {
	const query = `
        INSERT INTO ticket_action_logs (ticket_id, action_type, old_value, new_value, message, performed_by_user_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		log.TicketID,
		log.ActionType,
		log.OldValue,
		log.NewValue,
		log.Message,
		log.PerformedByUserID,
	).Scan(&log.ID, &log.CreatedAt)
}

// ListByTicket returns the audit trail newest-first.
func (r *actionLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketActionLog, error) {
	const query = `
        SELECT id, ticket_id, action_type, old_value, new_value, message, performed_by_user_id, created_at
        FROM ticket_action_logs WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketActionLog
	for rows.Next() {
		var log domain.TicketActionLog
		if err := rows.Scan(
			&log.ID,
			&log.TicketID,
			&log.ActionType,
			&log.OldValue,
			&log.NewValue,
			&log.Message,
			&log.PerformedByUserID,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}
