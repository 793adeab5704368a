package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.HTTPStatus != status {
		t.Fatalf("expected status %d, got %d (%s)", status, domainErr.HTTPStatus, domainErr.Message)
	}
}

func newTicketService(tickets *memTicketRepo, comments *memCommentRepo, users *memUserRepo, publisher *capturePublisher) *TicketService {
	deps := TicketDependencies{
		TicketRepo:  tickets,
		CommentRepo: comments,
		UserRepo:    users,
		Logger:      zap.NewNop(),
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	return NewTicketService(deps)
}

var (
	regularUser = domain.User{ID: "user-1", Email: "user@example.com", Role: domain.RoleUser}
	otherUser   = domain.User{ID: "user-2", Email: "other@example.com", Role: domain.RoleUser}
	moderator   = domain.User{ID: "mod-1", Email: "mod@example.com", Role: domain.RoleModerator}
	admin       = domain.User{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}
)

func TestCreateTicketPublishesEvent(t *testing.T) {
	publisher := &capturePublisher{}
	svc := newTicketService(newMemTicketRepo(), newMemCommentRepo(), newMemUserRepo(), publisher)

	ticket, err := svc.CreateTicket(context.Background(), &regularUser, "  Printer broken  ", "It jams on page two")
	if err != nil {
		t.Fatal(err)
	}
	if ticket.Status != domain.TicketStatusTodo {
		t.Fatalf("expected TODO, got %s", ticket.Status)
	}
	if ticket.Title != "Printer broken" {
		t.Fatalf("title not trimmed: %q", ticket.Title)
	}
	if len(publisher.events) != 1 || publisher.events[0].TicketID != ticket.ID {
		t.Fatalf("expected one event for %s, got %+v", ticket.ID, publisher.events)
	}
}

func TestCreateTicketRejectsBlankFields(t *testing.T) {
	svc := newTicketService(newMemTicketRepo(), newMemCommentRepo(), newMemUserRepo(), nil)

	_, err := svc.CreateTicket(context.Background(), &regularUser, "   ", "desc")
	requireStatus(t, err, http.StatusBadRequest)
}

func TestGetTicketOwnerOnlyForUsers(t *testing.T) {
	tickets := newMemTicketRepo(domain.Ticket{ID: "t1", Title: "x", CreatedBy: regularUser.ID})
	svc := newTicketService(tickets, newMemCommentRepo(), newMemUserRepo(), nil)

	ctx := context.Background()
	if _, _, err := svc.GetTicket(ctx, &regularUser, "t1"); err != nil {
		t.Fatalf("owner should see their ticket: %v", err)
	}

	_, _, err := svc.GetTicket(ctx, &otherUser, "t1")
	requireStatus(t, err, http.StatusForbidden)

	if _, _, err := svc.GetTicket(ctx, &moderator, "t1"); err != nil {
		t.Fatalf("staff should see any ticket: %v", err)
	}

	_, _, err = svc.GetTicket(ctx, &regularUser, "nope")
	requireStatus(t, err, http.StatusNotFound)
}

func TestFilterCommentsVisibility(t *testing.T) {
	comments := []domain.Comment{
		{ID: "public", Body: "anyone"},
		{ID: "private", Body: "staff only", IsPrivate: true},
		{ID: "mods", Body: "moderators only", TargetRoles: []domain.Role{domain.RoleModerator}},
		{ID: "user-directed", Body: "for the reporter", TargetRoles: []domain.Role{domain.RoleUser}},
	}

	cases := []struct {
		role domain.Role
		want []string
	}{
		{domain.RoleUser, []string{"public", "user-directed"}},
		{domain.RoleModerator, []string{"public", "private", "mods"}},
		// Target roles are strict: an admin is not implicitly included.
		{domain.RoleAdmin, []string{"public", "private"}},
	}
	for _, tc := range cases {
		got := FilterComments(comments, tc.role)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %v, got %d comments", tc.role, tc.want, len(got))
		}
		for i, comment := range got {
			if comment.ID != tc.want[i] {
				t.Fatalf("%s: expected %v, got %s at %d", tc.role, tc.want, comment.ID, i)
			}
		}
	}
}

func TestAddCommentStripsVisibilityForUsers(t *testing.T) {
	tickets := newMemTicketRepo(domain.Ticket{ID: "t1", CreatedBy: regularUser.ID})
	svc := newTicketService(tickets, newMemCommentRepo(), newMemUserRepo(), nil)

	comment, err := svc.AddComment(context.Background(), &regularUser, "t1", CommentInput{
		Body:        "please hurry",
		TaggedUsers: []string{"mod-1"},
		TargetRoles: []domain.Role{domain.RoleAdmin},
		IsPrivate:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if comment.IsPrivate || len(comment.TargetRoles) != 0 || len(comment.TaggedUsers) != 0 {
		t.Fatalf("visibility fields must be stripped for user authors: %+v", comment)
	}
}

func TestAddCommentKeepsVisibilityForStaff(t *testing.T) {
	tickets := newMemTicketRepo(domain.Ticket{ID: "t1", CreatedBy: regularUser.ID})
	svc := newTicketService(tickets, newMemCommentRepo(), newMemUserRepo(), nil)

	comment, err := svc.AddComment(context.Background(), &moderator, "t1", CommentInput{
		Body:        "internal note",
		TargetRoles: []domain.Role{domain.RoleModerator, domain.RoleAdmin},
		IsPrivate:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !comment.IsPrivate || len(comment.TargetRoles) != 2 {
		t.Fatalf("staff visibility fields must persist: %+v", comment)
	}
}

func TestAddCommentRejectsInvalidTargetRole(t *testing.T) {
	tickets := newMemTicketRepo(domain.Ticket{ID: "t1", CreatedBy: regularUser.ID})
	svc := newTicketService(tickets, newMemCommentRepo(), newMemUserRepo(), nil)

	_, err := svc.AddComment(context.Background(), &admin, "t1", CommentInput{
		Body:        "note",
		TargetRoles: []domain.Role{"root"},
	})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestAddCommentForbiddenOnForeignTicket(t *testing.T) {
	tickets := newMemTicketRepo(domain.Ticket{ID: "t1", CreatedBy: regularUser.ID})
	svc := newTicketService(tickets, newMemCommentRepo(), newMemUserRepo(), nil)

	_, err := svc.AddComment(context.Background(), &otherUser, "t1", CommentInput{Body: "hi"})
	requireStatus(t, err, http.StatusForbidden)
}

func TestResolveTicket(t *testing.T) {
	tickets := newMemTicketRepo(domain.Ticket{ID: "t1", CreatedBy: regularUser.ID, Status: domain.TicketStatusInProgress})
	svc := newTicketService(tickets, newMemCommentRepo(), newMemUserRepo(), nil)

	ctx := context.Background()
	_, err := svc.ResolveTicket(ctx, &regularUser, "t1")
	requireStatus(t, err, http.StatusForbidden)

	ticket, err := svc.ResolveTicket(ctx, &moderator, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if ticket.Status != domain.TicketStatusResolved {
		t.Fatalf("expected resolved, got %s", ticket.Status)
	}
	if ticket.ResolvedBy == nil || *ticket.ResolvedBy != moderator.ID {
		t.Fatalf("expected resolver %s, got %v", moderator.ID, ticket.ResolvedBy)
	}
	if ticket.ResolvedAt == nil {
		t.Fatal("expected resolution timestamp")
	}
}

func TestListAssignableStaffRequiresStaff(t *testing.T) {
	users := newMemUserRepo(moderator, admin, regularUser)
	svc := newTicketService(newMemTicketRepo(), newMemCommentRepo(), users, nil)

	ctx := context.Background()
	_, err := svc.ListAssignableStaff(ctx, &regularUser)
	requireStatus(t, err, http.StatusForbidden)

	staff, err := svc.ListAssignableStaff(ctx, &admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(staff) != 2 {
		t.Fatalf("expected 2 staff members, got %d", len(staff))
	}
}
