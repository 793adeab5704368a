package triage

import (
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func moderator(id string, skills ...string) domain.User {
	return domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleModerator, Skills: skills}
}

func TestSelectAssigneeMatchesSkillSubstring(t *testing.T) {
	moderators := []domain.User{
		moderator("m1", "Databases"),
		moderator("m2", "React, TypeScript"),
	}

	got := SelectAssignee([]string{"react"}, moderators, nil)
	if got == nil {
		t.Fatal("expected a moderator, got nil")
	}
	if got.ID != "m2" {
		t.Fatalf("expected m2, got %s", got.ID)
	}
}

func TestSelectAssigneeCaseInsensitive(t *testing.T) {
	moderators := []domain.User{moderator("m1", "REACT")}

	if got := SelectAssignee([]string{"React"}, moderators, nil); got == nil || got.ID != "m1" {
		t.Fatalf("expected m1, got %v", got)
	}
}

func TestSelectAssigneeFirstMatchWins(t *testing.T) {
	moderators := []domain.User{
		moderator("m1", "go", "postgres"),
		moderator("m2", "go"),
	}

	if got := SelectAssignee([]string{"go"}, moderators, nil); got == nil || got.ID != "m1" {
		t.Fatalf("expected first matching moderator m1, got %v", got)
	}
}

func TestSelectAssigneeAdminFallback(t *testing.T) {
	moderators := []domain.User{moderator("m1", "networking")}
	admins := []domain.User{
		{ID: "a1", Role: domain.RoleAdmin},
		{ID: "a2", Role: domain.RoleAdmin},
	}

	got := SelectAssignee([]string{"react"}, moderators, admins)
	if got == nil || got.ID != "a1" {
		t.Fatalf("expected admin fallback a1, got %v", got)
	}
}

func TestSelectAssigneeEmptySkillsFallsBackToAdmin(t *testing.T) {
	moderators := []domain.User{moderator("m1", "react"), moderator("m2", "go")}
	admins := []domain.User{{ID: "a1", Role: domain.RoleAdmin}}

	// No related skills means no moderator can match.
	if got := SelectAssignee(nil, moderators, admins); got == nil || got.ID != "a1" {
		t.Fatalf("expected a1, got %v", got)
	}
}

func TestSelectAssigneeNoCandidates(t *testing.T) {
	if got := SelectAssignee([]string{"go"}, nil, nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSkillsMatchIgnoresBlankEntries(t *testing.T) {
	if skillsMatch([]string{"  ", ""}, []string{"go"}) {
		t.Fatal("blank stored skills must not match")
	}
	if skillsMatch([]string{"go"}, []string{" ", ""}) {
		t.Fatal("blank related skills must not match")
	}
}
