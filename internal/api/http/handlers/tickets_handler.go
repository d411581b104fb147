package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/pkg/util"
)

// TicketsHandler manages admin ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.CustomerName == "" || req.CustomerEmail == "" || req.CategoryID == "" || req.Subject == "" || req.Message == "" {
		return util.NewValidationError("customer_name, customer_email, category_id, subject, message required", nil)
	}

	input := service.CreateTicketInput{
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CategoryID:     req.CategoryID,
		Subject:        req.Subject,
		Message:        req.Message,
		AssignedUserID: req.AssignedUserID,
		PerformedBy:    principal.User.ID,
	}
	if req.Priority != nil {
		priority, err := domain.ParseTicketPriority(*req.Priority)
		if err != nil {
			return util.NewValidationError(err.Error(), nil)
		}
		input.Priority = &priority
	}

	ticket, err := h.service.CreateTicket(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	page, err := h.service.GetTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketPage(page)})
}

// GetTicket GET /tickets/:id. Loading a ticket through this endpoint marks
// it as read.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"), true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.service.DeleteTicket(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AssignUser POST /tickets/:id/assign.
func (h *TicketsHandler) AssignUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.AssignUserRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return util.NewValidationError("user_id required", nil)
	}

	ticket, err := h.service.AssignUser(c.Context(), c.Params("id"), req.UserID, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	status, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		return util.NewValidationError(err.Error(), nil)
	}

	ticket, err := h.service.ChangeStatus(c.Context(), c.Params("id"), status, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// SetPriority POST /tickets/:id/priority.
func (h *TicketsHandler) SetPriority(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.SetPriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	priority, err := domain.ParseTicketPriority(req.Priority)
	if err != nil {
		return util.NewValidationError(err.Error(), nil)
	}

	ticket, err := h.service.SetPriority(c.Context(), c.Params("id"), priority, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// SetDueDate POST /tickets/:id/due-date.
func (h *TicketsHandler) SetDueDate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.SetDueDateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.DueDate.IsZero() {
		return util.NewValidationError("due_date required", nil)
	}

	ticket, err := h.service.SetDueDate(c.Context(), c.Params("id"), req.DueDate, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// PerformAll POST /tickets/:id/actions.
func (h *TicketsHandler) PerformAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.PerformAllRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	input := service.PerformAllInput{
		TicketID:       c.Params("id"),
		AssignedUserID: req.AssignedUserID,
		DueDate:        req.DueDate,
		PerformedBy:    principal.User.ID,
	}
	if req.Priority != nil {
		priority, err := domain.ParseTicketPriority(*req.Priority)
		if err != nil {
			return util.NewValidationError(err.Error(), nil)
		}
		input.Priority = &priority
	}
	if req.Status != nil {
		status, err := domain.ParseTicketStatus(*req.Status)
		if err != nil {
			return util.NewValidationError(err.Error(), nil)
		}
		input.Status = &status
	}

	ticket, err := h.service.PerformAllAction(c.Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// BulkAssign POST /tickets/bulk-assign.
func (h *TicketsHandler) BulkAssign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.BulkAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if len(req.TicketIDs) == 0 || req.AssignedUserID == "" {
		return util.NewValidationError("ticket_ids and assigned_user_id required", nil)
	}

	input := service.BulkAssignInput{
		TicketIDs:      req.TicketIDs,
		AssignedUserID: req.AssignedUserID,
		DueDate:        req.DueDate,
		PerformedBy:    principal.User.ID,
	}
	if req.Priority != nil {
		priority, err := domain.ParseTicketPriority(*req.Priority)
		if err != nil {
			return util.NewValidationError(err.Error(), nil)
		}
		input.Priority = &priority
	}

	tickets, err := h.service.BulkAssign(c.Context(), input)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Reply POST /tickets/:id/replies.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("admin required")
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	messageType := domain.MessageTypeText
	if req.MessageType != nil {
		parsed, err := domain.ParseMessageType(*req.MessageType)
		if err != nil {
			return util.NewValidationError(err.Error(), nil)
		}
		messageType = parsed
	}

	thread, err := h.service.ReplyTicket(c.Context(), service.ReplyInput{
		TicketID:    c.Params("id"),
		Message:     req.Message,
		MessageType: messageType,
		AuthorType:  domain.ReplyAuthorSuperAdmin,
		PostedBy:    principal.User.ID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": replyResponses(thread)})
}

// ListReplies GET /tickets/:id/replies.
func (h *TicketsHandler) ListReplies(c *fiber.Ctx) error {
	thread, err := h.service.GetReplies(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": replyResponses(thread)})
}

// Statistics GET /tickets/stats.
func (h *TicketsHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.service.GetTicketStatistics(c.Context(), c.Query("assigned_user_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// CountByCategory GET /tickets/count.
func (h *TicketsHandler) CountByCategory(c *fiber.Ctx) error {
	categoryID := c.Query("category_id")
	if categoryID == "" {
		return util.NewValidationError("category_id required", nil)
	}
	status, err := domain.ParseTicketStatus(c.Query("status", string(domain.TicketStatusPending)))
	if err != nil {
		return util.NewValidationError(err.Error(), nil)
	}

	count, err := h.service.TicketCountByCategory(c.Context(), categoryID, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": count}})
}

func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 20),
	}

	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return filter, util.NewValidationError(err.Error(), nil)
		}
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority, err := domain.ParseTicketPriority(raw)
		if err != nil {
			return filter, util.NewValidationError(err.Error(), nil)
		}
		filter.Priority = &priority
	}
	if raw := c.Query("category_id"); raw != "" {
		filter.CategoryID = &raw
	}
	if raw := c.Query("is_read"); raw != "" {
		isRead := strings.EqualFold(raw, "true")
		filter.IsRead = &isRead
	}
	if raw := strings.TrimSpace(c.Query("search")); raw != "" {
		filter.SearchKeyword = &raw
	}
	if raw := c.Query("sort_by"); raw != "" {
		sortBy := repository.TicketSort(strings.ToUpper(raw))
		filter.SortBy = &sortBy
	}
	if raw := c.Query("order_by"); raw != "" {
		orderBy := repository.SortOrder(strings.ToUpper(raw))
		filter.OrderBy = &orderBy
	}
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	summary := dto.TicketSummary{
		ID:             ticket.ID,
		ReferenceCode:  ticket.ReferenceCode,
		CustomerName:   ticket.CustomerName,
		CustomerEmail:  ticket.CustomerEmail,
		CategoryID:     ticket.CategoryID,
		Subject:        ticket.Subject,
		Priority:       ticket.Priority,
		Status:         ticket.Status,
		AssignedUserID: ticket.AssignedUserID,
		IsRead:         ticket.IsRead,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
	if ticket.Category != nil {
		summary.CategoryName = ticket.Category.Name
	}
	if ticket.AssignedUser != nil {
		summary.AssignedTo = ticket.AssignedUser.DisplayName()
	}
	if !ticket.DueDate.IsZero() {
		due := ticket.DueDate
		summary.DueDate = &due
	}
	return summary
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	logs := make([]dto.ActionLogResponse, 0, len(ticket.ActionLogs))
	for _, log := range ticket.ActionLogs {
		logs = append(logs, dto.ActionLogResponse{
			ID:                log.ID,
			ActionType:        log.ActionType,
			OldValue:          log.OldValue,
			NewValue:          log.NewValue,
			Message:           log.Message,
			PerformedByUserID: log.PerformedByUserID,
			CreatedAt:         log.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Message:       ticket.Message,
		ActionLogs:    logs,
		Replies:       replyResponses(ticket.Replies),
	}
}

func replyResponses(replies []domain.TicketReply) []dto.ReplyResponse {
	out := make([]dto.ReplyResponse, 0, len(replies))
	for _, reply := range replies {
		out = append(out, dto.ReplyResponse{
			ID:             reply.ID,
			Message:        reply.Message,
			MessageType:    reply.MessageType,
			AuthorType:     reply.AuthorType,
			PostedByUserID: reply.PostedByUserID,
			CreatedAt:      reply.CreatedAt,
		})
	}
	return out
}

func ticketPage(page *repository.TicketPage) dto.TicketPageResponse {
	items := make([]dto.TicketSummary, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketSummary(&page.Items[i]))
	}
	return dto.TicketPageResponse{
		Items:        items,
		TotalRecords: page.TotalRecords,
		Page:         page.Page,
		PageSize:     page.PageSize,
		PageCount:    page.PageCount,
	}
}
