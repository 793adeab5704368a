package triage

import (
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SelectAssignee picks the triage assignee for a classified ticket: the
// first moderator whose stored skills contain any related skill as a
// case-insensitive substring, falling back to the first admin, else nil.
// Iteration order of the inputs is the only tie-break.
func SelectAssignee(relatedSkills []string, moderators, admins []domain.User) *domain.User {
	for i := range moderators {
		if skillsMatch(moderators[i].Skills, relatedSkills) {
			return &moderators[i]
		}
	}
	if len(admins) > 0 {
		return &admins[0]
	}
	return nil
}

// skillsMatch reports whether any stored skill contains any related skill as
// a case-insensitive substring. Plain containment, never a compiled pattern:
// skill strings come from an untrusted classifier.
func skillsMatch(stored, related []string) bool {
	for _, have := range stored {
		h := strings.ToLower(strings.TrimSpace(have))
		if h == "" {
			continue
		}
		for _, want := range related {
			w := strings.ToLower(strings.TrimSpace(want))
			if w == "" {
				continue
			}
			if strings.Contains(h, w) {
				return true
			}
		}
	}
	return false
}
