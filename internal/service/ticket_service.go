package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/cache"
	"github.com/spec-kit/support-desk/internal/commands"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/pkg/util"
)

// referenceCodeLength is the total length of generated ticket codes.
const referenceCodeLength = 15

// TicketDependencies bundles everything the lifecycle service needs.
type TicketDependencies struct {
	UoW        repository.UnitOfWork
	Tickets    repository.TicketRepository
	Categories repository.CategoryRepository
	Users      repository.UserRepository
	Replies    repository.ReplyRepository
	Dispatcher events.Dispatcher
	Stats      *cache.StatsCache
	RefCodes   *util.ReferenceCodeGenerator
	Logger     *zap.Logger
}

// TicketService owns the ticket lifecycle. Every mutation of the assignee,
// status, priority or due-date fields runs through a command inside a unit
// of work, so the audit entry and the field write always land together.
// Events and cache invalidation happen strictly after commit.
type TicketService struct {
	deps TicketDependencies
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{deps: deps}
}

// CreateTicketInput carries ticket intake fields. AssignedUserID is only
// honored on the admin intake path.
type CreateTicketInput struct {
	CustomerName   string
	CustomerEmail  string
	CategoryID     string
	Subject        string
	Message        string
	Priority       *domain.TicketPriority
	AssignedUserID *string
	PerformedBy    string
}

// PerformAllInput batches several field changes on one ticket. Nil fields
// are left untouched.
type PerformAllInput struct {
	TicketID       string
	Priority       *domain.TicketPriority
	AssignedUserID *string
	Status         *domain.TicketStatus
	DueDate        *time.Time
	PerformedBy    string
}

// BulkAssignInput assigns a set of tickets to one user, optionally setting
// priority and due date on each.
type BulkAssignInput struct {
	TicketIDs      []string
	AssignedUserID string
	Priority       *domain.TicketPriority
	DueDate        *time.Time
	PerformedBy    string
}

// ReplyInput posts one message onto a ticket thread.
type ReplyInput struct {
	TicketID    string
	Message     string
	MessageType domain.MessageType
	AuthorType  domain.ReplyAuthorType
	PostedBy    string
}

// CreateTicket registers a new ticket. Duplicate open subjects per customer
// are rejected, the category must exist, and an optional initial assignee
// puts the ticket straight into ASSIGNED.
func (s *TicketService) CreateTicket(ctx context.Context, in CreateTicketInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" || strings.TrimSpace(in.Message) == "" {
		return nil, util.NewValidationError("subject and message are required", nil)
	}

	duplicate, err := s.deps.Tickets.ExistsSubjectForCustomer(ctx, subject, in.CustomerEmail)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	if duplicate {
		return nil, util.NewConflict("a ticket with this subject already exists for this customer", map[string]any{
			"subject": subject,
		})
	}

	exists, err := s.deps.Categories.Exists(ctx, in.CategoryID)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	if !exists {
		return nil, util.NewNotFound("category", map[string]any{"categoryId": in.CategoryID})
	}

	var assignee *domain.User
	if in.AssignedUserID != nil {
		assignee, err = s.deps.Users.GetByID(ctx, *in.AssignedUserID)
		if err != nil {
			return nil, mapLookupErr(err, "user")
		}
	}

	priority := domain.TicketPriorityLow
	if in.Priority != nil {
		priority = *in.Priority
	}

	ticket := &domain.Ticket{
		ReferenceCode: s.deps.RefCodes.Generate(referenceCodeLength),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		CategoryID:    in.CategoryID,
		Subject:       subject,
		Message:       in.Message,
		Priority:      priority,
		Status:        domain.TicketStatusPending,
	}

	err = s.deps.UoW.Do(ctx, func(ctx context.Context, tx repository.TxRepositories) error {
		if err := tx.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if assignee != nil {
			cmd := commands.AssignUser{User: assignee}
			if _, err := cmd.Apply(ctx, tx.Logs, ticket, in.PerformedBy); err != nil {
				return err
			}
			return tx.Tickets.Update(ctx, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, util.MapError(err)
	}

	s.deps.Stats.Invalidate(ctx)
	s.publish(ctx, events.EventTicketCreated, ticket.ID, in.PerformedBy, events.TicketCreatedPayload{Ticket: ticket})
	if assignee != nil {
		s.publish(ctx, events.EventTicketAssigned, ticket.ID, in.PerformedBy, events.TicketAssignedPayload{
			Ticket:     ticket,
			Assignee:   assignee,
			AssignedBy: s.lookupActor(ctx, in.PerformedBy),
		})
	}
	return ticket, nil
}

// GetTicket loads the full aggregate. When markRead is set the ticket is
// flagged as read; that flag is bookkeeping, not an audited field change.
func (s *TicketService) GetTicket(ctx context.Context, id string, markRead bool) (*domain.Ticket, error) {
	ticket, err := s.deps.Tickets.GetWithDetails(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "ticket")
	}

	if markRead && !ticket.IsRead {
		ticket.IsRead = true
		if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
			return nil, util.MapError(err)
		}
	}
	return ticket, nil
}

// GetTickets lists tickets per the filter with pagination totals.
func (s *TicketService) GetTickets(ctx context.Context, filter repository.TicketFilter) (*repository.TicketPage, error) {
	page, err := s.deps.Tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	return page, nil
}

// AssignUser assigns the ticket to a user. Assigning the current assignee
// again is a conflict; the command forces the status to ASSIGNED.
func (s *TicketService) AssignUser(ctx context.Context, ticketID, userID, performedBy string) (*domain.Ticket, error) {
	assignee, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}

	ticket, err := s.applyCommand(ctx, ticketID, performedBy, func(t *domain.Ticket) (commands.Command, error) {
		if t.AssignedTo(userID) {
			return nil, util.NewConflict("ticket is already assigned to this user", map[string]any{"userId": userID})
		}
		return commands.AssignUser{User: assignee}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketAssigned, ticket.ID, performedBy, events.TicketAssignedPayload{
		Ticket:     ticket,
		Assignee:   assignee,
		AssignedBy: s.lookupActor(ctx, performedBy),
	})
	return ticket, nil
}

// ChangeStatus moves the ticket to the given status. Re-applying the
// current status is a conflict.
func (s *TicketService) ChangeStatus(ctx context.Context, ticketID string, status domain.TicketStatus, performedBy string) (*domain.Ticket, error) {
	if !status.Storable() {
		return nil, util.NewValidationError("status cannot be stored on a ticket", map[string]any{"status": status})
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.applyCommand(ctx, ticketID, performedBy, func(t *domain.Ticket) (commands.Command, error) {
		if t.Status == status {
			return nil, util.NewConflict("ticket already has this status", map[string]any{"status": status})
		}
		oldStatus = t.Status
		return commands.ChangeStatus{Status: status}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, performedBy, events.TicketStatusChangedPayload{
		Ticket:    ticket,
		OldStatus: oldStatus,
		NewStatus: status,
		ChangedBy: s.lookupActor(ctx, performedBy),
	})
	return ticket, nil
}

// SetPriority re-prioritizes the ticket. Re-applying the current priority
// is a conflict.
func (s *TicketService) SetPriority(ctx context.Context, ticketID string, priority domain.TicketPriority, performedBy string) (*domain.Ticket, error) {
	var oldPriority domain.TicketPriority
	ticket, err := s.applyCommand(ctx, ticketID, performedBy, func(t *domain.Ticket) (commands.Command, error) {
		if t.Priority == priority {
			return nil, util.NewConflict("ticket already has this priority", map[string]any{"priority": priority})
		}
		oldPriority = t.Priority
		return commands.SetPriority{Priority: priority}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketPriorityChanged, ticket.ID, performedBy, events.TicketPriorityChangedPayload{
		Ticket:      ticket,
		OldPriority: oldPriority,
		NewPriority: priority,
	})
	return ticket, nil
}

// SetDueDate reschedules the ticket. Past dates are invalid; re-applying
// the current due date is a conflict.
func (s *TicketService) SetDueDate(ctx context.Context, ticketID string, dueDate time.Time, performedBy string) (*domain.Ticket, error) {
	if dueDate.Before(time.Now()) {
		return nil, util.NewValidationError("due date must be in the future", map[string]any{"dueDate": dueDate})
	}

	ticket, err := s.applyCommand(ctx, ticketID, performedBy, func(t *domain.Ticket) (commands.Command, error) {
		if !t.DueDate.IsZero() && t.DueDate.Equal(dueDate) {
			return nil, util.NewConflict("ticket already has this due date", map[string]any{"dueDate": dueDate})
		}
		return commands.SetDueDate{DueDate: dueDate}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketDueDateChanged, ticket.ID, performedBy, events.TicketDueDateChangedPayload{
		Ticket:  ticket,
		DueDate: dueDate,
	})
	return ticket, nil
}

// PerformAllAction applies several field changes on one ticket atomically.
// Commands run priority, then assignment, then status, then due date, so an
// explicitly requested status always wins over the ASSIGNED side effect of
// assignment. Fields already at the requested value are skipped rather than
// rejected.
func (s *TicketService) PerformAllAction(ctx context.Context, in PerformAllInput) (*domain.Ticket, error) {
	if in.Status != nil && !in.Status.Storable() {
		return nil, util.NewValidationError("status cannot be stored on a ticket", map[string]any{"status": *in.Status})
	}
	if in.DueDate != nil && in.DueDate.Before(time.Now()) {
		return nil, util.NewValidationError("due date must be in the future", map[string]any{"dueDate": *in.DueDate})
	}

	var assignee *domain.User
	if in.AssignedUserID != nil {
		var err error
		assignee, err = s.deps.Users.GetByID(ctx, *in.AssignedUserID)
		if err != nil {
			return nil, mapLookupErr(err, "user")
		}
	}

	var ticket *domain.Ticket
	err := s.deps.UoW.Do(ctx, func(ctx context.Context, tx repository.TxRepositories) error {
		var err error
		ticket, err = tx.Tickets.GetWithDetails(ctx, in.TicketID)
		if err != nil {
			return mapLookupErr(err, "ticket")
		}

		var cmds []commands.Command
		if in.Priority != nil && ticket.Priority != *in.Priority {
			cmds = append(cmds, commands.SetPriority{Priority: *in.Priority})
		}
		if assignee != nil && !ticket.AssignedTo(assignee.ID) {
			cmds = append(cmds, commands.AssignUser{User: assignee})
		}
		if in.Status != nil && ticket.Status != *in.Status {
			cmds = append(cmds, commands.ChangeStatus{Status: *in.Status})
		}
		if in.DueDate != nil && !ticket.DueDate.Equal(*in.DueDate) {
			cmds = append(cmds, commands.SetDueDate{DueDate: *in.DueDate})
		}
		if len(cmds) == 0 {
			return nil
		}

		for _, cmd := range cmds {
			if _, err := cmd.Apply(ctx, tx.Logs, ticket, in.PerformedBy); err != nil {
				return err
			}
		}
		return tx.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, util.MapError(err)
	}

	s.deps.Stats.Invalidate(ctx)
	return ticket, nil
}

// BulkAssign assigns every listed ticket to one user in a single
// transaction, optionally setting priority and due date on each. Per-ticket
// fields already at the target value are skipped; any failure rolls back
// the whole batch.
func (s *TicketService) BulkAssign(ctx context.Context, in BulkAssignInput) ([]domain.Ticket, error) {
	if len(in.TicketIDs) == 0 {
		return nil, util.NewValidationError("at least one ticket id is required", nil)
	}
	if in.DueDate != nil && in.DueDate.Before(time.Now()) {
		return nil, util.NewValidationError("due date must be in the future", map[string]any{"dueDate": *in.DueDate})
	}

	assignee, err := s.deps.Users.GetByID(ctx, in.AssignedUserID)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}

	ids := dedupe(in.TicketIDs)

	var assigned []domain.Ticket
	err = s.deps.UoW.Do(ctx, func(ctx context.Context, tx repository.TxRepositories) error {
		tickets, err := tx.Tickets.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(tickets) != len(ids) {
			return util.NewNotFound("ticket", map[string]any{
				"requested": len(ids),
				"found":     len(tickets),
			})
		}

		for i := range tickets {
			ticket := &tickets[i]

			if in.Priority != nil && ticket.Priority != *in.Priority {
				cmd := commands.SetPriority{Priority: *in.Priority}
				if _, err := cmd.Apply(ctx, tx.Logs, ticket, in.PerformedBy); err != nil {
					return err
				}
			}
			if !ticket.AssignedTo(assignee.ID) {
				cmd := commands.AssignUser{User: assignee}
				if _, err := cmd.Apply(ctx, tx.Logs, ticket, in.PerformedBy); err != nil {
					return err
				}
			}
			if in.DueDate != nil && !ticket.DueDate.Equal(*in.DueDate) {
				cmd := commands.SetDueDate{DueDate: *in.DueDate}
				if _, err := cmd.Apply(ctx, tx.Logs, ticket, in.PerformedBy); err != nil {
					return err
				}
			}

			if err := tx.Tickets.Update(ctx, ticket); err != nil {
				return err
			}
		}
		assigned = tickets
		return nil
	})
	if err != nil {
		return nil, util.MapError(err)
	}

	s.deps.Stats.Invalidate(ctx)
	s.publish(ctx, events.EventTicketsBulkAssigned, "", in.PerformedBy, events.TicketsBulkAssignedPayload{
		Tickets:    assigned,
		Assignee:   assignee,
		AssignedBy: s.lookupActor(ctx, in.PerformedBy),
	})
	return assigned, nil
}

// ReplyTicket posts a message onto a ticket thread and returns the updated
// thread newest-first. Media replies are rejected until attachment storage
// lands.
func (s *TicketService) ReplyTicket(ctx context.Context, in ReplyInput) ([]domain.TicketReply, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, util.NewValidationError("reply message is required", nil)
	}
	if in.MessageType == domain.MessageTypeMedia {
		return nil, util.NewValidationError("media replies are not supported yet", nil)
	}

	ticket, err := s.deps.Tickets.GetWithDetails(ctx, in.TicketID)
	if err != nil {
		return nil, mapLookupErr(err, "ticket")
	}

	reply := &domain.TicketReply{
		TicketID:       ticket.ID,
		Message:        in.Message,
		MessageType:    in.MessageType,
		PostedByUserID: in.PostedBy,
		AuthorType:     in.AuthorType,
	}
	if err := s.deps.Replies.Create(ctx, reply); err != nil {
		return nil, util.NewUnexpected(err)
	}

	s.publish(ctx, events.EventTicketReplied, ticket.ID, in.PostedBy, events.TicketRepliedPayload{
		Ticket: ticket,
		Reply:  reply,
	})

	thread, err := s.deps.Replies.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	return thread, nil
}

// GetReplies returns a ticket's thread newest-first.
func (s *TicketService) GetReplies(ctx context.Context, ticketID string) ([]domain.TicketReply, error) {
	if _, err := s.deps.Tickets.GetWithDetails(ctx, ticketID); err != nil {
		return nil, mapLookupErr(err, "ticket")
	}
	replies, err := s.deps.Replies.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	return replies, nil
}

// DeleteTicket soft-deletes the ticket. The row and its audit trail stay
// behind; every read path stops seeing it.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.deps.Tickets.GetWithDetails(ctx, ticketID)
	if err != nil {
		return mapLookupErr(err, "ticket")
	}

	ticket.IsDeleted = true
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return util.MapError(err)
	}

	s.deps.Stats.Invalidate(ctx)
	return nil
}

// GetTicketStatistics returns counts by lifecycle state, optionally scoped
// to one assignee, served from cache when fresh.
func (s *TicketService) GetTicketStatistics(ctx context.Context, assignedUserID string) (*domain.TicketStatistics, error) {
	if stats, ok := s.deps.Stats.Get(ctx, assignedUserID); ok {
		return stats, nil
	}

	stats, err := s.deps.Tickets.Statistics(ctx, assignedUserID)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	s.deps.Stats.Set(ctx, assignedUserID, stats)
	return stats, nil
}

// TicketCountByCategory counts live tickets in a category at one status.
func (s *TicketService) TicketCountByCategory(ctx context.Context, categoryID string, status domain.TicketStatus) (int, error) {
	if !status.Storable() {
		return 0, util.NewValidationError("status cannot be stored on a ticket", map[string]any{"status": status})
	}
	count, err := s.deps.Tickets.CountByCategory(ctx, categoryID, status)
	if err != nil {
		return 0, util.NewUnexpected(err)
	}
	return count, nil
}

// applyCommand runs the single-command mutation protocol: load inside the
// transaction, run the precondition, apply, persist. The conflict check and
// the write share one transaction so stale reads cannot slip a duplicate
// value past the check.
func (s *TicketService) applyCommand(ctx context.Context, ticketID, performedBy string, build func(*domain.Ticket) (commands.Command, error)) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.deps.UoW.Do(ctx, func(ctx context.Context, tx repository.TxRepositories) error {
		var err error
		ticket, err = tx.Tickets.GetWithDetails(ctx, ticketID)
		if err != nil {
			return mapLookupErr(err, "ticket")
		}

		cmd, err := build(ticket)
		if err != nil {
			return err
		}
		if _, err := cmd.Apply(ctx, tx.Logs, ticket, performedBy); err != nil {
			return err
		}
		return tx.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, util.MapError(err)
	}

	s.deps.Stats.Invalidate(ctx)
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID, actorID string, payload any) {
	_ = s.deps.Dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// lookupActor resolves the acting user for notification copy. Best-effort:
// notifications degrade to an anonymous actor rather than failing the
// operation.
func (s *TicketService) lookupActor(ctx context.Context, userID string) *domain.User {
	if userID == "" {
		return nil
	}
	actor, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		s.deps.Logger.Debug("could not resolve acting user", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return actor
}

// dedupe drops repeated ids while keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func mapLookupErr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return util.NewNotFound(resource, nil)
	}
	return util.MapError(err)
}
