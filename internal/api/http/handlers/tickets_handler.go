package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketQueries covers the dashboard's read paths and replies.
type TicketQueries interface {
	ListTickets(ctx context.Context, filter service.TicketListFilter) (*service.TicketPage, error)
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	Stats(ctx context.Context) (*service.TicketStats, error)
	AddReply(ctx context.Context, actor domain.Identity, ticketID, message string) (*domain.TicketReply, error)
	ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error)
}

// StatusUpdater changes ticket status.
type StatusUpdater interface {
	UpdateTicketStatus(ctx context.Context, actor domain.Identity, ticketID, requested string) (*service.StatusUpdateResult, error)
}

// PICAssigner reassigns the person in charge.
type PICAssigner interface {
	AssignPIC(ctx context.Context, actor domain.Identity, ticketID, pic string) (*domain.Ticket, error)
}

// TicketsHandler manages staff ticket endpoints.
type TicketsHandler struct {
	tickets  TicketQueries
	statuses StatusUpdater
	assign   PICAssigner
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketQueries, statuses StatusUpdater, assign PICAssigner) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, statuses: statuses, assign: assign}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	page, err := h.tickets.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, ticketSummary(&page.Tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}})
}

// Stats GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.Stats(c.UserContext())
	if err != nil {
		return err
	}
	resp := dto.TicketStatsResponse{Total: stats.Total, ByStatus: make([]dto.StatusCountResponse, 0, len(stats.ByStatus))}
	for _, row := range stats.ByStatus {
		resp.ByStatus = append(resp.ByStatus, dto.StatusCountResponse{
			Status:        row.Status,
			DisplayStatus: row.DisplayStatus,
			Count:         row.Count,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateStatus PUT /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.statuses.UpdateTicketStatus(c.UserContext(), principal.Identity, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatusUpdateResponse{
		Ticket:        ticketDetail(result.Ticket),
		DisplayStatus: result.DisplayStatus,
		Notified:      result.Notified,
	}})
}

// AssignPIC PUT /api/tickets/:id/pic.
func (h *TicketsHandler) AssignPIC(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignPICRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.assign.AssignPIC(c.UserContext(), principal.Identity, c.Params("id"), req.PIC)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddReply POST /api/tickets/:id/replies.
func (h *TicketsHandler) AddReply(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reply, err := h.tickets.AddReply(c.UserContext(), principal.Identity, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": replyResponse(*reply)})
}

// ListHistory GET /api/tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.tickets.ListHistory(c.UserContext(), c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		Platform: c.Query("platform"),
		PIC:      c.Query("pic"),
		Search:   c.Query("q"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 20),
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, strings.TrimSpace(part))
		}
	}
	return filter
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
	return dto.TicketSummary{
		ID:            ticket.ID,
		TicketCode:    ticket.TicketCode,
		Status:        ticket.Status,
		DisplayStatus: ticket.DisplayStatus(),
		Platform:      ticket.Platform,
		ReporterName:  ticket.ReporterName,
		Category:      ticket.Category,
		PIC:           ticket.PIC,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		CompletedAt:   ticket.CompletedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	replies := make([]dto.ReplyResponse, 0, len(ticket.Replies))
	for _, reply := range ticket.Replies {
		replies = append(replies, replyResponse(reply))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Description:   ticket.Description,
		ChatID:        ticket.ChatID,
		MessageID:     ticket.MessageID,
		Replies:       replies,
	}
}

func replyResponse(reply domain.TicketReply) dto.ReplyResponse {
	return dto.ReplyResponse{
		ID:        reply.ID,
		Author:    reply.Author,
		Message:   reply.Message,
		Delivered: reply.Delivered,
		CreatedAt: reply.CreatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ChangedBy:  entry.ChangedBy,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
