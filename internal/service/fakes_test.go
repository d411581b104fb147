package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) add(ticket *domain.Ticket) *domain.Ticket {
	if ticket.ID == "" {
		r.nextID++
		ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return ticket
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetWithDetails(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok || ticket.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) (*repository.TicketPage, error) {
	var items []domain.Ticket
	for _, ticket := range r.tickets {
		if !ticket.IsDeleted {
			items = append(items, *ticket)
		}
	}
	return &repository.TicketPage{Items: items, TotalRecords: len(items), Page: 1, PageSize: 20, PageCount: 1}, nil
}

func (r *fakeTicketRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, id := range ids {
		if ticket, ok := r.tickets[id]; ok && !ticket.IsDeleted {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (r *fakeTicketRepo) ExistsSubjectForCustomer(ctx context.Context, subject, customerEmail string) (bool, error) {
	for _, ticket := range r.tickets {
		if ticket.CustomerEmail == customerEmail && ticket.Subject == subject {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTicketRepo) Statistics(ctx context.Context, assignedUserID string) (*domain.TicketStatistics, error) {
	stats := &domain.TicketStatistics{}
	for _, ticket := range r.tickets {
		if ticket.IsDeleted {
			continue
		}
		if assignedUserID != "" && !ticket.AssignedTo(assignedUserID) {
			continue
		}
		stats.Total++
		switch ticket.Status {
		case domain.TicketStatusResolved:
			stats.ResolvedCount++
		case domain.TicketStatusAssigned:
			stats.AssignedCount++
		}
	}
	return stats, nil
}

func (r *fakeTicketRepo) CountByCategory(ctx context.Context, categoryID string, status domain.TicketStatus) (int, error) {
	count := 0
	for _, ticket := range r.tickets {
		if !ticket.IsDeleted && ticket.CategoryID == categoryID && ticket.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) snapshot() map[string]*domain.Ticket {
	copied := make(map[string]*domain.Ticket, len(r.tickets))
	for id, ticket := range r.tickets {
		clone := *ticket
		copied[id] = &clone
	}
	return copied
}

type fakeLogRepo struct {
	entries []domain.TicketActionLog
	nextID  int
}

func (r *fakeLogRepo) Create(ctx context.Context, log *domain.TicketActionLog) error {
	r.nextID++
	log.ID = fmt.Sprintf("log-%d", r.nextID)
	log.CreatedAt = time.Now().Add(time.Duration(r.nextID) * time.Millisecond)
	r.entries = append(r.entries, *log)
	return nil
}

func (r *fakeLogRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketActionLog, error) {
	var result []domain.TicketActionLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TicketID == ticketID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

type fakeReplyRepo struct {
	replies []domain.TicketReply
	nextID  int
}

func (r *fakeReplyRepo) Create(ctx context.Context, reply *domain.TicketReply) error {
	r.nextID++
	reply.ID = fmt.Sprintf("reply-%d", r.nextID)
	reply.CreatedAt = time.Now().Add(time.Duration(r.nextID) * time.Millisecond)
	r.replies = append(r.replies, *reply)
	return nil
}

func (r *fakeReplyRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketReply, error) {
	var result []domain.TicketReply
	for i := len(r.replies) - 1; i >= 0; i-- {
		if r.replies[i].TicketID == ticketID {
			result = append(result, r.replies[i])
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

type fakeCategoryRepo struct {
	categories map[string]*domain.TicketCategory
	nextID     int
}

func newFakeCategoryRepo(names ...string) *fakeCategoryRepo {
	repo := &fakeCategoryRepo{categories: make(map[string]*domain.TicketCategory)}
	for _, name := range names {
		_ = repo.Create(context.Background(), &domain.TicketCategory{Name: name})
	}
	return repo
}

func (r *fakeCategoryRepo) Create(ctx context.Context, category *domain.TicketCategory) error {
	r.nextID++
	category.ID = fmt.Sprintf("category-%d", r.nextID)
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	clone := *category
	r.categories[category.ID] = &clone
	return nil
}

func (r *fakeCategoryRepo) Update(ctx context.Context, category *domain.TicketCategory) error {
	if _, ok := r.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *category
	r.categories[category.ID] = &clone
	return nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, id string) (*domain.TicketCategory, error) {
	category, ok := r.categories[id]
	if !ok || category.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	clone := *category
	return &clone, nil
}

func (r *fakeCategoryRepo) List(ctx context.Context) ([]domain.TicketCategory, error) {
	var result []domain.TicketCategory
	for _, category := range r.categories {
		if !category.IsDeleted {
			result = append(result, *category)
		}
	}
	return result, nil
}

func (r *fakeCategoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	category, ok := r.categories[id]
	return ok && !category.IsDeleted, nil
}

func (r *fakeCategoryRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, category := range r.categories {
		if !category.IsDeleted && category.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// fakeUnitOfWork hands fn the shared fakes and emulates transactionality by
// restoring the pre-call state when fn fails.
type fakeUnitOfWork struct {
	tickets   *fakeTicketRepo
	logs      *fakeLogRepo
	replies   *fakeReplyRepo
	commits   int
	rollbacks int
}

func (u *fakeUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx repository.TxRepositories) error) error {
	ticketSnapshot := u.tickets.snapshot()
	logSnapshot := append([]domain.TicketActionLog{}, u.logs.entries...)
	replySnapshot := append([]domain.TicketReply{}, u.replies.replies...)

	err := fn(ctx, repository.TxRepositories{
		Tickets: u.tickets,
		Logs:    u.logs,
		Replies: u.replies,
	})
	if err != nil {
		u.tickets.tickets = ticketSnapshot
		u.logs.entries = logSnapshot
		u.replies.replies = replySnapshot
		u.rollbacks++
		return err
	}
	u.commits++
	return nil
}
