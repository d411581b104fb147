package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mail"
)

// NotificationService turns lifecycle events into outbound email. It runs
// entirely post-commit: delivery failures are logged and never surface to
// the operation that raised the event.
type NotificationService struct {
	mailer     mail.Mailer
	logger     *zap.Logger
	ticketsURL string
}

// NewNotificationService constructs the service.
func NewNotificationService(mailer mail.Mailer, cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		mailer:     mailer,
		logger:     logger,
		ticketsURL: cfg.TicketsURL,
	}
}

// Register subscribes the service to the events it mails on.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketAssigned, s.onTicketAssigned)
	dispatcher.Subscribe(events.EventTicketsBulkAssigned, s.onTicketsBulkAssigned)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onTicketStatusChanged)
	dispatcher.Subscribe(events.EventTicketReplied, s.onTicketReplied)
}

func (s *NotificationService) onTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.Ticket == nil || payload.Assignee == nil {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	subject := fmt.Sprintf("Ticket %s has been assigned to you", payload.Ticket.ReferenceCode)
	body := s.renderAssigned(payload.Ticket, payload.AssignedBy)
	return s.send(ctx, payload.Assignee.Email, subject, body)
}

func (s *NotificationService) onTicketsBulkAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketsBulkAssignedPayload)
	if !ok || payload.Assignee == nil || len(payload.Tickets) == 0 {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	subject := fmt.Sprintf("%d tickets have been assigned to you", len(payload.Tickets))
	body := s.renderBulkDigest(payload.Tickets, payload.AssignedBy)
	return s.send(ctx, payload.Assignee.Email, subject, body)
}

// onTicketStatusChanged mails the customer, but only when the ticket
// reaches RESOLVED; intermediate transitions stay internal.
func (s *NotificationService) onTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok || payload.Ticket == nil {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	if payload.NewStatus != domain.TicketStatusResolved {
		return nil
	}

	subject := fmt.Sprintf("Your ticket %s has been resolved", payload.Ticket.ReferenceCode)
	body := s.renderResolved(payload.Ticket)
	return s.send(ctx, payload.Ticket.CustomerEmail, subject, body)
}

// onTicketReplied mails the customer when staff reply; customer-authored
// replies generate no mail.
func (s *NotificationService) onTicketReplied(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRepliedPayload)
	if !ok || payload.Ticket == nil || payload.Reply == nil {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	if payload.Reply.AuthorType != domain.ReplyAuthorSuperAdmin {
		return nil
	}

	subject := fmt.Sprintf("New reply on your ticket %s", payload.Ticket.ReferenceCode)
	body := s.renderReply(payload.Ticket, payload.Reply)
	return s.send(ctx, payload.Ticket.CustomerEmail, subject, body)
}

func (s *NotificationService) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.Warn("failed to send notification mail",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *NotificationService) renderAssigned(ticket *domain.Ticket, assignedBy *domain.User) string {
	var b strings.Builder
	b.WriteString("<h2>Ticket assigned to you</h2>")
	fmt.Fprintf(&b, "<p><strong>%s</strong> — %s</p>",
		html.EscapeString(ticket.ReferenceCode), html.EscapeString(ticket.Subject))
	fmt.Fprintf(&b, "<p>Customer: %s (%s)</p>",
		html.EscapeString(ticket.CustomerName), html.EscapeString(ticket.CustomerEmail))
	fmt.Fprintf(&b, "<p>Priority: %s</p>", ticket.Priority)
	if !ticket.DueDate.IsZero() {
		fmt.Fprintf(&b, "<p>Due: %s</p>", ticket.DueDate.UTC().Format(time.RFC1123))
	}
	if assignedBy != nil {
		fmt.Fprintf(&b, "<p>Assigned by %s</p>", html.EscapeString(assignedBy.DisplayName()))
	}
	b.WriteString(s.ticketLink(ticket.ID))
	return b.String()
}

func (s *NotificationService) renderBulkDigest(tickets []domain.Ticket, assignedBy *domain.User) string {
	var b strings.Builder
	b.WriteString("<h2>Tickets assigned to you</h2>")
	if assignedBy != nil {
		fmt.Fprintf(&b, "<p>Assigned by %s</p>", html.EscapeString(assignedBy.DisplayName()))
	}
	b.WriteString("<ul>")
	for i := range tickets {
		ticket := &tickets[i]
		fmt.Fprintf(&b, "<li><strong>%s</strong> — %s (%s)</li>",
			html.EscapeString(ticket.ReferenceCode), html.EscapeString(ticket.Subject), ticket.Priority)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, `<p><a href="%s">Open your queue</a></p>`, s.ticketsURL)
	return b.String()
}

func (s *NotificationService) renderResolved(ticket *domain.Ticket) string {
	var b strings.Builder
	b.WriteString("<h2>Your ticket has been resolved</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(ticket.CustomerName))
	fmt.Fprintf(&b, "<p>Your ticket <strong>%s</strong> (%s) has been marked as resolved.</p>",
		html.EscapeString(ticket.ReferenceCode), html.EscapeString(ticket.Subject))
	b.WriteString("<p>If the issue persists, just reply to the ticket and it will be reopened for review.</p>")
	return b.String()
}

func (s *NotificationService) renderReply(ticket *domain.Ticket, reply *domain.TicketReply) string {
	var b strings.Builder
	b.WriteString("<h2>New reply on your ticket</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(ticket.CustomerName))
	fmt.Fprintf(&b, "<p>Our support team replied to ticket <strong>%s</strong>:</p>",
		html.EscapeString(ticket.ReferenceCode))
	fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(reply.Message))
	return b.String()
}

func (s *NotificationService) ticketLink(ticketID string) string {
	return fmt.Sprintf(`<p><a href="%s/%s">View the ticket</a></p>`, s.ticketsURL, ticketID)
}
