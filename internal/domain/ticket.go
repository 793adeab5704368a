package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "TODO"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketPriority enumerates triage urgency as produced by the classifier.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// ValidPriority reports whether the value is one of the accepted priorities.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. Priority, HelpfulNotes and
// RelatedSkills stay empty until the triage pipeline classifies the ticket;
// AssignedTo stays nil until the assign-moderator step runs.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	CreatedBy     string
	AssignedTo    *string
	HelpfulNotes  string
	RelatedSkills []string
	ResolvedBy    *string
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Comment is an entry in a ticket's discussion thread. TaggedUsers,
// TargetRoles and IsPrivate are only honored when the author is a moderator
// or admin.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    string
	Body        string
	TaggedUsers []string
	TargetRoles []Role
	IsPrivate   bool
	CreatedAt   time.Time
}

// VisibleTo evaluates the comment visibility rule for a requester role:
// a non-empty TargetRoles restricts visibility to those roles; otherwise a
// private comment is visible to moderators and admins only.
func (c Comment) VisibleTo(role Role) bool {
	if len(c.TargetRoles) > 0 {
		for _, allowed := range c.TargetRoles {
			if allowed == role {
				return true
			}
		}
		return false
	}
	if c.IsPrivate {
		return role.IsStaff()
	}
	return true
}
