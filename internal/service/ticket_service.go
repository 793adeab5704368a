package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// TicketService coordinates ticket workflows and role checks.
type TicketService struct {
	tickets   repository.TicketRepository
	comments  repository.CommentRepository
	users     repository.UserRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Publisher   events.Publisher
	Logger      *zap.Logger
}

// CommentInput describes a comment creation payload. Visibility fields are
// honored only for moderator/admin authors.
type CommentInput struct {
	Body        string
	TaggedUsers []string
	TargetRoles []domain.Role
	IsPrivate   bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:   deps.TicketRepo,
		comments:  deps.CommentRepo,
		users:     deps.UserRepo,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}
}

// CreateTicket persists a new ticket and emits the trigger event. Creation
// succeeds from the caller's perspective regardless of the downstream triage
// outcome, so a publish failure is logged, not returned.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.User, title, description string) (*domain.Ticket, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusTodo,
		CreatedBy:   creator.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.publisher != nil {
		event := events.TicketCreatedEvent{
			TicketID:    ticket.ID,
			Title:       ticket.Title,
			Description: ticket.Description,
			CreatedBy:   creator.ID,
		}
		if err := s.publisher.PublishTicketCreated(ctx, event); err != nil {
			s.logger.Error("failed to publish ticket-created event",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return ticket, nil
}

// ListTickets returns the requester's own tickets for the user role and all
// tickets, newest first, for moderators and admins.
func (s *TicketService) ListTickets(ctx context.Context, requester *domain.User) ([]domain.Ticket, error) {
	if requester.Role.IsStaff() {
		tickets, err := s.tickets.ListAll(ctx)
		return tickets, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListByCreator(ctx, requester.ID)
	return tickets, apperrors.MapError(err)
}

// GetTicket loads a ticket with the comment subset visible to the requester.
// A user-role requester may only access tickets they created.
func (s *TicketService) GetTicket(ctx context.Context, requester *domain.User, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !requester.Role.IsStaff() && ticket.CreatedBy != requester.ID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}

	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, FilterComments(comments, requester.Role), nil
}

// FilterComments returns the subset of comments visible to the role.
func FilterComments(comments []domain.Comment, role domain.Role) []domain.Comment {
	visible := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.VisibleTo(role) {
			visible = append(visible, comment)
		}
	}
	return visible
}

// AddComment appends a comment to a ticket's thread. User-role authors may
// only comment on their own tickets and cannot set visibility restrictions.
func (s *TicketService) AddComment(ctx context.Context, author *domain.User, ticketID string, input CommentInput) (*domain.Comment, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewValidationError("comment is required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !author.Role.IsStaff() && ticket.CreatedBy != author.ID {
		return nil, apperrors.NewForbidden("not authorized to comment on this ticket")
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: author.ID,
		Body:     strings.TrimSpace(input.Body),
	}
	if author.Role.IsStaff() {
		for _, role := range input.TargetRoles {
			if !domain.ValidRole(role) {
				return nil, apperrors.NewValidationError("invalid target role", map[string]any{"role": role})
			}
		}
		comment.TaggedUsers = input.TaggedUsers
		comment.TargetRoles = input.TargetRoles
		comment.IsPrivate = input.IsPrivate
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return comment, nil
}

// ResolveTicket marks a ticket resolved on behalf of a moderator or admin.
func (s *TicketService) ResolveTicket(ctx context.Context, resolver *domain.User, ticketID string) (*domain.Ticket, error) {
	if !resolver.Role.IsStaff() {
		return nil, apperrors.NewForbidden("not authorized to resolve tickets")
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.tickets.MarkResolved(ctx, ticketID, resolver.ID, time.Now()); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListAssignableStaff returns moderators followed by admins, in store order.
func (s *TicketService) ListAssignableStaff(ctx context.Context, requester *domain.User) ([]domain.User, error) {
	if !requester.Role.IsStaff() {
		return nil, apperrors.NewForbidden("access denied")
	}
	moderators, err := s.users.ListByRole(ctx, domain.RoleModerator)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return append(moderators, admins...), nil
}
