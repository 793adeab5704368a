package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestCreateUserDefaultsToUserRole(t *testing.T) {
	svc := NewUserService(newMemUserRepo(), 4)

	user, err := svc.CreateUser(context.Background(), "new@example.com", "s3cretpass", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %s", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cretpass" {
		t.Fatal("password must be stored hashed")
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	repo := newMemUserRepo(domain.User{ID: "u1", Email: "taken@example.com", Role: domain.RoleUser})
	svc := NewUserService(repo, 4)

	_, err := svc.CreateUser(context.Background(), "taken@example.com", "s3cretpass", domain.RoleUser, nil)
	requireStatus(t, err, http.StatusConflict)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newMemUserRepo(), 4)

	_, err := svc.CreateUser(context.Background(), "x@example.com", "s3cretpass", "superuser", nil)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestUpdateUserKeepsSkillsWhenEmpty(t *testing.T) {
	repo := newMemUserRepo(domain.User{
		ID: "m1", Email: "mod@example.com", Role: domain.RoleModerator, Skills: []string{"go", "react"},
	})
	svc := NewUserService(repo, 4)

	user, err := svc.UpdateUser(context.Background(), "mod@example.com", domain.RoleAdmin, nil)
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected role change, got %s", user.Role)
	}
	if len(user.Skills) != 2 {
		t.Fatalf("empty skills must keep stored ones, got %v", user.Skills)
	}
}

func TestUpdateUserUnknownEmail(t *testing.T) {
	svc := NewUserService(newMemUserRepo(), 4)

	_, err := svc.UpdateUser(context.Background(), "ghost@example.com", domain.RoleUser, nil)
	requireStatus(t, err, http.StatusNotFound)
}

func TestDeleteUserRejectsSelfDeletion(t *testing.T) {
	actor := domain.User{ID: "a1", Email: "admin@example.com", Role: domain.RoleAdmin}
	svc := NewUserService(newMemUserRepo(actor), 4)

	err := svc.DeleteUser(context.Background(), &actor, "admin@example.com")
	requireStatus(t, err, http.StatusBadRequest)
}

func TestDeleteUserRejectsAdminTargets(t *testing.T) {
	actor := domain.User{ID: "a1", Email: "admin@example.com", Role: domain.RoleAdmin}
	other := domain.User{ID: "a2", Email: "other-admin@example.com", Role: domain.RoleAdmin}
	svc := NewUserService(newMemUserRepo(actor, other), 4)

	err := svc.DeleteUser(context.Background(), &actor, "other-admin@example.com")
	requireStatus(t, err, http.StatusBadRequest)
}

func TestDeleteUserRemovesRegularAccount(t *testing.T) {
	actor := domain.User{ID: "a1", Email: "admin@example.com", Role: domain.RoleAdmin}
	target := domain.User{ID: "u1", Email: "user@example.com", Role: domain.RoleUser}
	repo := newMemUserRepo(actor, target)
	svc := NewUserService(repo, 4)

	ctx := context.Background()
	if err := svc.DeleteUser(ctx, &actor, "user@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByEmail(ctx, "user@example.com"); err == nil {
		t.Fatal("expected user to be gone")
	}

	err := svc.DeleteUser(ctx, &actor, "user@example.com")
	requireStatus(t, err, http.StatusNotFound)
}
