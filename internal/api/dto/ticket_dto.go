package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// AddCommentRequest payload. Visibility fields are ignored for user-role
// authors.
type AddCommentRequest struct {
	Comment     string   `json:"comment" validate:"required"`
	TaggedUsers []string `json:"taggedUsers"`
	TargetRoles []string `json:"targetRoles" validate:"omitempty,dive,oneof=user moderator admin"`
	IsPrivate   bool     `json:"isPrivate"`
}

// CommentResponse is one entry of a ticket's visible thread.
type CommentResponse struct {
	ID          string        `json:"id"`
	AuthorID    string        `json:"author_id"`
	Comment     string        `json:"comment"`
	TaggedUsers []string      `json:"taggedUsers,omitempty"`
	TargetRoles []domain.Role `json:"targetRoles,omitempty"`
	IsPrivate   bool          `json:"isPrivate"`
	CreatedAt   time.Time     `json:"created_at"`
}

// TicketSummary is the reduced listing view for user-role requesters.
type TicketSummary struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TicketResponse is the full ticket view for moderators and admins.
type TicketResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority,omitempty"`
	CreatedBy     string                `json:"created_by"`
	AssignedTo    *string               `json:"assigned_to"`
	HelpfulNotes  string                `json:"helpfulNotes,omitempty"`
	RelatedSkills []string              `json:"relatedSkills,omitempty"`
	ResolvedBy    *string               `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Comments      []CommentResponse     `json:"comments,omitempty"`
}

// UserTicketDetail is the restricted detail view for user-role requesters:
// triage notes are included, assignment and resolution metadata are not.
type UserTicketDetail struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Status        domain.TicketStatus `json:"status"`
	HelpfulNotes  string              `json:"helpfulNotes,omitempty"`
	RelatedSkills []string            `json:"relatedSkills,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Comments      []CommentResponse   `json:"comments,omitempty"`
}

// StaffMemberResponse is one assignable moderator or admin.
type StaffMemberResponse struct {
	ID     string      `json:"id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Skills []string    `json:"skills"`
}

// NewCommentResponse maps the domain model.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:          comment.ID,
		AuthorID:    comment.AuthorID,
		Comment:     comment.Body,
		TaggedUsers: comment.TaggedUsers,
		TargetRoles: comment.TargetRoles,
		IsPrivate:   comment.IsPrivate,
		CreatedAt:   comment.CreatedAt,
	}
}

// NewTicketResponse maps the full staff view.
func NewTicketResponse(ticket *domain.Ticket, comments []domain.Comment) TicketResponse {
	resp := TicketResponse{
		ID:            ticket.ID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		CreatedBy:     ticket.CreatedBy,
		AssignedTo:    ticket.AssignedTo,
		HelpfulNotes:  ticket.HelpfulNotes,
		RelatedSkills: ticket.RelatedSkills,
		ResolvedBy:    ticket.ResolvedBy,
		ResolvedAt:    ticket.ResolvedAt,
		CreatedAt:     ticket.CreatedAt,
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(&comments[i]))
	}
	return resp
}

// NewUserTicketDetail maps the restricted view.
func NewUserTicketDetail(ticket *domain.Ticket, comments []domain.Comment) UserTicketDetail {
	resp := UserTicketDetail{
		ID:            ticket.ID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Status:        ticket.Status,
		HelpfulNotes:  ticket.HelpfulNotes,
		RelatedSkills: ticket.RelatedSkills,
		CreatedAt:     ticket.CreatedAt,
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(&comments[i]))
	}
	return resp
}

// NewTicketSummary maps the reduced listing view.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
	}
}
