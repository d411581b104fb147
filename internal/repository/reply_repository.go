package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ReplyRepository stores the append-only conversation thread of a ticket.
type ReplyRepository interface {
	Create(ctx context.Context, reply *domain.TicketReply) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketReply, error)
}

type replyRepository struct {
	db DB
}

// NewReplyRepository builds the repository over a pool or transaction.
func NewReplyRepository(db DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *domain.TicketReply) error {
	const query = `
        INSERT INTO ticket_replies (ticket_id, message, message_type, posted_by_user_id, author_type)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		reply.TicketID,
		reply.Message,
		reply.MessageType,
		reply.PostedByUserID,
		reply.AuthorType,
	).Scan(&reply.ID, &reply.CreatedAt)
}

// ListByTicket returns replies newest-first.
func (r *replyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketReply, error) {
	const query = `
        SELECT id, ticket_id, message, message_type, posted_by_user_id, author_type, created_at
        FROM ticket_replies WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketReply
	for rows.Next() {
		var reply domain.TicketReply
		if err := rows.Scan(
			&reply.ID,
			&reply.TicketID,
			&reply.Message,
			&reply.MessageType,
			&reply.PostedByUserID,
			&reply.AuthorType,
			&reply.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, reply)
	}
	return result, rows.Err()
}
