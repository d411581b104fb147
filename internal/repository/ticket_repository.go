package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketSort enumerates supported sort keys for listings.
type TicketSort string

const (
	TicketSortCreatedAt TicketSort = "CREATED_AT"
	TicketSortStatus    TicketSort = "STATUS"
	TicketSortCategory  TicketSort = "CATEGORY"
)

// SortOrder enumerates listing directions.
type SortOrder string

const (
	SortOrderRecentlyAdded SortOrder = "RECENTLY_ADDED"
	SortOrderOldest        SortOrder = "OLDEST"
)

// TicketFilter captures listing parameters. Status accepts the UNRESOLVED
// pseudo-status, which matches every status except RESOLVED.
type TicketFilter struct {
	Status        *domain.TicketStatus
	CategoryID    *string
	Priority      *domain.TicketPriority
	IsRead        *bool
	SearchKeyword *string
	SortBy        *TicketSort
	OrderBy       *SortOrder
	Page          int
	PageSize      int
}

// TicketPage is one page of a filtered listing plus pagination totals.
type TicketPage struct {
	Items        []domain.Ticket
	TotalRecords int
	Page         int
	PageSize     int
	PageCount    int
}

// TicketRepository encapsulates ticket persistence. Soft-deleted tickets are
// invisible to every read path; the rows stay behind for audit integrity.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetWithDetails(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) (*TicketPage, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error)
	ExistsSubjectForCustomer(ctx context.Context, subject, customerEmail string) (bool, error)
	Statistics(ctx context.Context, assignedUserID string) (*domain.TicketStatistics, error)
	CountByCategory(ctx context.Context, categoryID string, status domain.TicketStatus) (int, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates the repository over a pool or transaction.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (reference_code, customer_name, customer_email, category_id, subject, message, priority, status, assigned_user_id, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.ReferenceCode,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.CategoryID,
		ticket.Subject,
		ticket.Message,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedUserID,
		nullableTime(ticket.DueDate),
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET priority=$1, status=$2, assigned_user_id=$3, due_date=$4,
            is_deleted=$5, is_read=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedUserID,
		nullableTime(ticket.DueDate),
		ticket.IsDeleted,
		ticket.IsRead,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const ticketSelectColumns = `
        t.id, t.reference_code, t.customer_name, t.customer_email, t.category_id, t.subject, t.message,
        t.priority, t.status, t.assigned_user_id, t.due_date, t.is_deleted, t.is_read, t.created_at, t.updated_at,
        c.name,
        u.first_name, u.last_name, u.email`

const ticketSelectJoins = `
        FROM tickets t
        JOIN ticket_categories c ON c.id = t.category_id
        LEFT JOIN users u ON u.id = t.assigned_user_id`

// GetWithDetails loads the full aggregate: ticket with category and assignee
// plus its action-log and reply collections, both newest-first.
func (r *ticketRepository) GetWithDetails(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT` + ticketSelectColumns + ticketSelectJoins + `
        WHERE t.id=$1 AND NOT t.is_deleted`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	ticket.ActionLogs, err = NewActionLogRepository(r.db).ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	ticket.Replies, err = NewReplyRepository(r.db).ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) (*TicketPage, error) {
	where, args := buildFilterWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*)` + ticketSelectJoins + ` WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT%s%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketSelectColumns, ticketSelectJoins, where,
		orderClause(filter.SortBy, filter.OrderBy), pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}

	pageCount := total / pageSize
	if total%pageSize != 0 {
		pageCount++
	}
	return &TicketPage{
		Items:        items,
		TotalRecords: total,
		Page:         page,
		PageSize:     pageSize,
		PageCount:    pageCount,
	}, nil
}

func (r *ticketRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	query := `SELECT` + ticketSelectColumns + ticketSelectJoins + `
        WHERE NOT t.is_deleted AND t.id = ANY($1)
        ORDER BY t.created_at DESC`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ExistsSubjectForCustomer(ctx context.Context, subject, customerEmail string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM tickets
            WHERE customer_email = $1 AND LOWER(subject) = LOWER($2)
        )`
	var exists bool
	err := r.db.QueryRow(ctx, query, strings.TrimSpace(customerEmail), strings.TrimSpace(subject)).Scan(&exists)
	return exists, err
}

// Statistics counts live tickets by lifecycle state, optionally scoped to
// one assignee. The assignee column is UUID, so both sides of its
// comparison are cast to text; otherwise the empty-string sentinel would
// fix the parameter as text and leave no uuid = text operator to prepare
// against.
func (r *ticketRepository) Statistics(ctx context.Context, assignedUserID string) (*domain.TicketStatistics, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = $1),
               COUNT(*) FILTER (WHERE status = $2)
        FROM tickets
        WHERE NOT is_deleted AND ($3::text = '' OR assigned_user_id::text = $3::text)`
	var stats domain.TicketStatistics
	if err := r.db.QueryRow(ctx, query,
		domain.TicketStatusResolved,
		domain.TicketStatusAssigned,
		assignedUserID,
	).Scan(&stats.Total, &stats.ResolvedCount, &stats.AssignedCount); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *ticketRepository) CountByCategory(ctx context.Context, categoryID string, status domain.TicketStatus) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE NOT is_deleted AND category_id = $1 AND status = $2`
	var count int
	err := r.db.QueryRow(ctx, query, categoryID, status).Scan(&count)
	return count, err
}

// buildFilterWhere translates a TicketFilter into a WHERE expression plus
// positional args. UNRESOLVED is a pseudo-status and becomes
// status <> RESOLVED; the search keyword matches case-insensitively across
// customer name, customer email, category name, subject and message.
func buildFilterWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"NOT t.is_deleted"}
	args := []any{}

	if filter.Status != nil {
		if *filter.Status == domain.TicketStatusUnresolved {
			args = append(args, domain.TicketStatusResolved)
			clauses = append(clauses, fmt.Sprintf("t.status <> $%d", len(args)))
		} else {
			args = append(args, *filter.Status)
			clauses = append(clauses, fmt.Sprintf("t.status = $%d", len(args)))
		}
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("t.category_id = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		clauses = append(clauses, fmt.Sprintf("t.is_read = $%d", len(args)))
	}
	if filter.SearchKeyword != nil && strings.TrimSpace(*filter.SearchKeyword) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.SearchKeyword))+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(t.customer_name) LIKE %[1]s OR LOWER(t.customer_email) LIKE %[1]s OR LOWER(c.name) LIKE %[1]s OR LOWER(t.subject) LIKE %[1]s OR LOWER(t.message) LIKE %[1]s)",
			placeholder))
	}

	return strings.Join(clauses, " AND "), args
}

func orderClause(sortBy *TicketSort, orderBy *SortOrder) string {
	direction := "DESC"
	if orderBy != nil && *orderBy == SortOrderOldest {
		direction = "ASC"
	}
	column := "t.created_at"
	if sortBy != nil {
		switch *sortBy {
		case TicketSortStatus:
			column = "t.status"
		case TicketSortCategory:
			column = "c.name"
		}
	}
	return column + " " + direction
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket        domain.Ticket
		dueDate       *time.Time
		categoryName  string
		assigneeFirst *string
		assigneeLast  *string
		assigneeEmail *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.ReferenceCode,
		&ticket.CustomerName,
		&ticket.CustomerEmail,
		&ticket.CategoryID,
		&ticket.Subject,
		&ticket.Message,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedUserID,
		&dueDate,
		&ticket.IsDeleted,
		&ticket.IsRead,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&categoryName,
		&assigneeFirst,
		&assigneeLast,
		&assigneeEmail,
	); err != nil {
		return nil, err
	}
	if dueDate != nil {
		ticket.DueDate = *dueDate
	}
	ticket.Category = &domain.TicketCategory{ID: ticket.CategoryID, Name: categoryName}
	if ticket.AssignedUserID != nil && assigneeFirst != nil {
		ticket.AssignedUser = &domain.User{
			ID:        *ticket.AssignedUserID,
			FirstName: *assigneeFirst,
			LastName:  deref(assigneeLast),
			Email:     deref(assigneeEmail),
		}
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
