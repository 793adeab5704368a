package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// TicketsHandler manages ticket endpoints.
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
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return apperrors.NewValidationError("title and description are required", nil)
	}

	ticket, err := h.service.CreateTicket(c.Context(), principal.User, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Ticket created and processing started",
		"ticket":  dto.NewTicketSummary(ticket),
	})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.ListTickets(c.Context(), principal.User)
	if err != nil {
		return err
	}

	if principal.User.Role.IsStaff() {
		items := make([]dto.TicketResponse, 0, len(tickets))
		for i := range tickets {
			items = append(items, dto.NewTicketResponse(&tickets[i], nil))
		}
		return c.JSON(fiber.Map{"tickets": items})
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"tickets": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, comments, err := h.service.GetTicket(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	if principal.User.Role.IsStaff() {
		return c.JSON(fiber.Map{"ticket": dto.NewTicketResponse(ticket, comments)})
	}
	return c.JSON(fiber.Map{"ticket": dto.NewUserTicketDetail(ticket, comments)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return apperrors.NewValidationError("comment is required", nil)
	}

	roles := make([]domain.Role, 0, len(req.TargetRoles))
	for _, role := range req.TargetRoles {
		roles = append(roles, domain.Role(role))
	}
	comment, err := h.service.AddComment(c.Context(), principal.User, c.Params("id"), service.CommentInput{
		Body:        req.Comment,
		TaggedUsers: req.TaggedUsers,
		TargetRoles: roles,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Comment added successfully",
		"comment": dto.NewCommentResponse(comment),
	})
}

// ResolveTicket PUT /tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.ResolveTicket(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Ticket marked as resolved",
		"ticket":  dto.NewTicketResponse(ticket, nil),
	})
}

// ListModerators GET /tickets/moderators.
func (h *TicketsHandler) ListModerators(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	staff, err := h.service.ListAssignableStaff(c.Context(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.StaffMemberResponse, 0, len(staff))
	for _, member := range staff {
		items = append(items, dto.StaffMemberResponse{
			ID:     member.ID,
			Email:  member.Email,
			Role:   member.Role,
			Skills: member.Skills,
		})
	}
	return c.JSON(fiber.Map{"users": items})
}
