package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/pkg/util"
)

type serviceFixture struct {
	service    *TicketService
	tickets    *fakeTicketRepo
	logs       *fakeLogRepo
	replies    *fakeReplyRepo
	users      *fakeUserRepo
	categories *fakeCategoryRepo
	uow        *fakeUnitOfWork
	dispatcher events.Dispatcher

	mu        sync.Mutex
	published []events.Event
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	fx := &serviceFixture{
		tickets: newFakeTicketRepo(),
		logs:    &fakeLogRepo{},
		replies: &fakeReplyRepo{},
		users: newFakeUserRepo(
			&domain.User{ID: "user-1", FirstName: "Dana", LastName: "Reeves", Email: "dana@example.com", Role: domain.RoleAdmin},
			&domain.User{ID: "user-2", FirstName: "Omar", LastName: "Khan", Email: "omar@example.com", Role: domain.RoleAdmin},
			&domain.User{ID: "actor", FirstName: "Sasha", LastName: "Lopez", Email: "sasha@example.com", Role: domain.RoleSuperAdmin},
		),
		categories: newFakeCategoryRepo("Billing"),
		dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
	}
	fx.uow = &fakeUnitOfWork{tickets: fx.tickets, logs: fx.logs, replies: fx.replies}

	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketDueDateChanged,
		events.EventTicketReplied,
		events.EventTicketsBulkAssigned,
	} {
		fx.dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			fx.mu.Lock()
			defer fx.mu.Unlock()
			fx.published = append(fx.published, event)
			return nil
		})
	}

	fx.service = NewTicketService(TicketDependencies{
		UoW:        fx.uow,
		Tickets:    fx.tickets,
		Categories: fx.categories,
		Users:      fx.users,
		Replies:    fx.replies,
		Dispatcher: fx.dispatcher,
		Stats:      nil,
		RefCodes:   util.NewReferenceCodeGenerator(42),
		Logger:     zap.NewNop(),
	})
	return fx
}

func (fx *serviceFixture) seedTicket(mutate func(*domain.Ticket)) *domain.Ticket {
	ticket := &domain.Ticket{
		ReferenceCode: "0101120000ABCDE",
		CustomerName:  "Pat Doe",
		CustomerEmail: "pat@example.com",
		CategoryID:    "category-1",
		Subject:       "Cannot log in",
		Message:       "Login keeps failing",
		Priority:      domain.TicketPriorityLow,
		Status:        domain.TicketStatusPending,
	}
	if mutate != nil {
		mutate(ticket)
	}
	return fx.tickets.add(ticket)
}

func (fx *serviceFixture) eventTypes() []events.EventType {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	types := make([]events.EventType, 0, len(fx.published))
	for _, event := range fx.published {
		types = append(types, event.Type)
	}
	return types
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	domainErr := util.ToDomainError(err)
	require.NotNil(t, domainErr)
	return domainErr.Code
}

func TestCreateTicketDefaults(t *testing.T) {
	fx := newServiceFixture(t)

	ticket, err := fx.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerName:  "Pat Doe",
		CustomerEmail: "pat@example.com",
		CategoryID:    "category-1",
		Subject:       "Cannot log in",
		Message:       "Login keeps failing",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.Len(t, ticket.ReferenceCode, 15)
	assert.Empty(t, fx.logs.entries, "plain intake must not write audit entries")
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, fx.eventTypes())
}

func TestCreateTicketWithInitialAssignee(t *testing.T) {
	fx := newServiceFixture(t)

	ticket, err := fx.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerName:   "Pat Doe",
		CustomerEmail:  "pat@example.com",
		CategoryID:     "category-1",
		Subject:        "Cannot log in",
		Message:        "Login keeps failing",
		AssignedUserID: strPtr("user-1"),
		PerformedBy:    "actor",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.AssignedUserID)
	assert.Equal(t, "user-1", *ticket.AssignedUserID)

	require.Len(t, fx.logs.entries, 1)
	entry := fx.logs.entries[0]
	assert.Equal(t, domain.ActionAssignUser, entry.ActionType)
	assert.Equal(t, "Assigned to Dana Reeves", entry.Message)
	assert.Equal(t, "", entry.OldValue)
	assert.Equal(t, "user-1", entry.NewValue)
	assert.Equal(t, "actor", entry.PerformedByUserID)

	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventTicketAssigned}, fx.eventTypes())
}

func TestCreateTicketDuplicateSubjectConflicts(t *testing.T) {
	fx := newServiceFixture(t)
	fx.seedTicket(nil)

	_, err := fx.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerName:  "Pat Doe",
		CustomerEmail: "pat@example.com",
		CategoryID:    "category-1",
		Subject:       "Cannot log in",
		Message:       "Still failing",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestCreateTicketUnknownCategory(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerName:  "Pat Doe",
		CustomerEmail: "pat@example.com",
		CategoryID:    "category-404",
		Subject:       "Cannot log in",
		Message:       "Login keeps failing",
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestAssignUserForcesAssignedStatus(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	ticket, err := fx.service.AssignUser(context.Background(), seeded.ID, "user-1", "actor")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.True(t, ticket.AssignedTo("user-1"))
	require.Len(t, fx.logs.entries, 1)
	assert.Equal(t, domain.ActionAssignUser, fx.logs.entries[0].ActionType)
	assert.Equal(t, 1, fx.uow.commits)
}

func TestAssignUserAlreadyAssignedConflicts(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(func(ticket *domain.Ticket) {
		id := "user-1"
		ticket.AssignedUserID = &id
		ticket.Status = domain.TicketStatusAssigned
	})

	_, err := fx.service.AssignUser(context.Background(), seeded.ID, "user-1", "actor")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainCode(t, err))
	assert.Empty(t, fx.logs.entries, "rejected command must not leave an audit entry")
	assert.Equal(t, 1, fx.uow.rollbacks)
}

func TestAssignUserUnknownUser(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	_, err := fx.service.AssignUser(context.Background(), seeded.ID, "user-404", "actor")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestChangeStatusWritesAuditAndEvent(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	ticket, err := fx.service.ChangeStatus(context.Background(), seeded.ID, domain.TicketStatusResolved, "actor")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.Len(t, fx.logs.entries, 1)
	assert.Equal(t, "Status changed to: RESOLVED", fx.logs.entries[0].Message)
	assert.Equal(t, "PENDING", fx.logs.entries[0].OldValue)
	assert.Equal(t, []events.EventType{events.EventTicketStatusChanged}, fx.eventTypes())
}

func TestChangeStatusSameValueConflicts(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	_, err := fx.service.ChangeStatus(context.Background(), seeded.ID, domain.TicketStatusPending, "actor")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainCode(t, err))
	assert.Empty(t, fx.logs.entries)
}

func TestChangeStatusRejectsUnresolvedPseudoStatus(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	_, err := fx.service.ChangeStatus(context.Background(), seeded.ID, domain.TicketStatusUnresolved, "actor")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestSetPrioritySameValueConflicts(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	_, err := fx.service.SetPriority(context.Background(), seeded.ID, domain.TicketPriorityLow, "actor")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestSetDueDateRejectsPast(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	_, err := fx.service.SetDueDate(context.Background(), seeded.ID, time.Now().Add(-time.Hour), "actor")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestSetDueDateWritesAudit(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)
	due := time.Now().Add(48 * time.Hour).Truncate(time.Second)

	ticket, err := fx.service.SetDueDate(context.Background(), seeded.ID, due, "actor")
	require.NoError(t, err)

	assert.True(t, ticket.DueDate.Equal(due))
	require.Len(t, fx.logs.entries, 1)
	entry := fx.logs.entries[0]
	assert.Equal(t, domain.ActionAssignDueDate, entry.ActionType)
	assert.Equal(t, "", entry.OldValue)
	assert.Equal(t, due.UTC().Format(time.RFC3339), entry.NewValue)
}

func TestPerformAllActionOrderAndStatusPrecedence(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)
	due := time.Now().Add(72 * time.Hour)
	status := domain.TicketStatusResolved
	priority := domain.TicketPriorityHigh

	ticket, err := fx.service.PerformAllAction(context.Background(), PerformAllInput{
		TicketID:       seeded.ID,
		Priority:       &priority,
		AssignedUserID: strPtr("user-1"),
		Status:         &status,
		DueDate:        &due,
		PerformedBy:    "actor",
	})
	require.NoError(t, err)

	// The requested status is applied after assignment, so it wins over the
	// ASSIGNED side effect.
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.True(t, ticket.AssignedTo("user-1"))

	require.Len(t, fx.logs.entries, 4)
	assert.Equal(t, domain.ActionChangePriority, fx.logs.entries[0].ActionType)
	assert.Equal(t, domain.ActionAssignUser, fx.logs.entries[1].ActionType)
	assert.Equal(t, domain.ActionChangeStatus, fx.logs.entries[2].ActionType)
	assert.Equal(t, domain.ActionAssignDueDate, fx.logs.entries[3].ActionType)
	assert.Equal(t, 1, fx.uow.commits)
}

func TestPerformAllActionSkipsNoopFields(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(func(ticket *domain.Ticket) {
		ticket.Priority = domain.TicketPriorityHigh
	})
	priority := domain.TicketPriorityHigh
	status := domain.TicketStatusResolved

	_, err := fx.service.PerformAllAction(context.Background(), PerformAllInput{
		TicketID:    seeded.ID,
		Priority:    &priority,
		Status:      &status,
		PerformedBy: "actor",
	})
	require.NoError(t, err)

	require.Len(t, fx.logs.entries, 1)
	assert.Equal(t, domain.ActionChangeStatus, fx.logs.entries[0].ActionType)
}

func TestBulkAssignSkipRulesAndDigest(t *testing.T) {
	fx := newServiceFixture(t)
	first := fx.seedTicket(nil)
	second := fx.seedTicket(func(ticket *domain.Ticket) {
		ticket.Subject = "Other issue"
		id := "user-1"
		ticket.AssignedUserID = &id
		ticket.Status = domain.TicketStatusAssigned
		ticket.Priority = domain.TicketPriorityHigh
	})
	priority := domain.TicketPriorityHigh

	tickets, err := fx.service.BulkAssign(context.Background(), BulkAssignInput{
		TicketIDs:      []string{first.ID, second.ID},
		AssignedUserID: "user-1",
		Priority:       &priority,
		PerformedBy:    "actor",
	})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	// First ticket needs priority and assignment; second is already at both
	// targets and must produce no audit entries at all.
	require.Len(t, fx.logs.entries, 2)
	for _, entry := range fx.logs.entries {
		assert.Equal(t, first.ID, entry.TicketID)
	}
	assert.Equal(t, domain.ActionChangePriority, fx.logs.entries[0].ActionType)
	assert.Equal(t, domain.ActionAssignUser, fx.logs.entries[1].ActionType)

	assert.Equal(t, []events.EventType{events.EventTicketsBulkAssigned}, fx.eventTypes())
	assert.Equal(t, 1, fx.uow.commits)
}

func TestBulkAssignToleratesDuplicateIDs(t *testing.T) {
	fx := newServiceFixture(t)
	first := fx.seedTicket(nil)

	tickets, err := fx.service.BulkAssign(context.Background(), BulkAssignInput{
		TicketIDs:      []string{first.ID, first.ID, first.ID},
		AssignedUserID: "user-1",
		PerformedBy:    "actor",
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.True(t, tickets[0].AssignedTo("user-1"))

	// One assignment, one audit entry: repeats must not be treated as
	// missing tickets or re-applied.
	require.Len(t, fx.logs.entries, 1)
	assert.Equal(t, domain.ActionAssignUser, fx.logs.entries[0].ActionType)
	assert.Equal(t, 1, fx.uow.commits)
}

func TestBulkAssignMissingTicketRollsBackBatch(t *testing.T) {
	fx := newServiceFixture(t)
	first := fx.seedTicket(nil)

	_, err := fx.service.BulkAssign(context.Background(), BulkAssignInput{
		TicketIDs:      []string{first.ID, "ticket-404"},
		AssignedUserID: "user-1",
		PerformedBy:    "actor",
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))

	assert.Empty(t, fx.logs.entries, "failed batch must stage nothing")
	stored, getErr := fx.tickets.GetWithDetails(context.Background(), first.ID)
	require.NoError(t, getErr)
	assert.Nil(t, stored.AssignedUserID, "failed batch must not assign any ticket")
	assert.Equal(t, 1, fx.uow.rollbacks)
	assert.Empty(t, fx.eventTypes())
}

func TestReplyTicketReturnsThreadNewestFirst(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	_, err := fx.service.ReplyTicket(context.Background(), ReplyInput{
		TicketID:    seeded.ID,
		Message:     "We are looking into it",
		MessageType: domain.MessageTypeText,
		AuthorType:  domain.ReplyAuthorSuperAdmin,
		PostedBy:    "actor",
	})
	require.NoError(t, err)

	thread, err := fx.service.ReplyTicket(context.Background(), ReplyInput{
		TicketID:    seeded.ID,
		Message:     "Should be fixed now",
		MessageType: domain.MessageTypeText,
		AuthorType:  domain.ReplyAuthorSuperAdmin,
		PostedBy:    "actor",
	})
	require.NoError(t, err)

	require.Len(t, thread, 2)
	assert.Equal(t, "Should be fixed now", thread[0].Message)
	assert.Equal(t, "We are looking into it", thread[1].Message)
}

func TestReplyTicketRejectsMedia(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	_, err := fx.service.ReplyTicket(context.Background(), ReplyInput{
		TicketID:    seeded.ID,
		Message:     "see attachment",
		MessageType: domain.MessageTypeMedia,
		AuthorType:  domain.ReplyAuthorSuperAdmin,
		PostedBy:    "actor",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	assert.Empty(t, fx.replies.replies)
}

func TestDeleteTicketIsSoft(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	require.NoError(t, fx.service.DeleteTicket(context.Background(), seeded.ID))

	_, err := fx.service.GetTicket(context.Background(), seeded.ID, false)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))

	// Row is still there, only hidden.
	stored, ok := fx.tickets.tickets[seeded.ID]
	require.True(t, ok)
	assert.True(t, stored.IsDeleted)
}

func TestGetTicketMarksRead(t *testing.T) {
	fx := newServiceFixture(t)
	seeded := fx.seedTicket(nil)

	ticket, err := fx.service.GetTicket(context.Background(), seeded.ID, true)
	require.NoError(t, err)
	assert.True(t, ticket.IsRead)

	stored := fx.tickets.tickets[seeded.ID]
	assert.True(t, stored.IsRead)
	assert.Empty(t, fx.logs.entries, "read flag is not an audited field")
}

func TestGetTicketStatistics(t *testing.T) {
	fx := newServiceFixture(t)
	fx.seedTicket(nil)
	fx.seedTicket(func(ticket *domain.Ticket) {
		ticket.Subject = "Resolved one"
		ticket.Status = domain.TicketStatusResolved
	})
	fx.seedTicket(func(ticket *domain.Ticket) {
		ticket.Subject = "Assigned one"
		id := "user-1"
		ticket.AssignedUserID = &id
		ticket.Status = domain.TicketStatusAssigned
	})

	stats, err := fx.service.GetTicketStatistics(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ResolvedCount)
	assert.Equal(t, 1, stats.AssignedCount)

	scoped, err := fx.service.GetTicketStatistics(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, scoped.Total)
	assert.Equal(t, 1, scoped.AssignedCount)
}

func strPtr(s string) *string {
	return &s
}
