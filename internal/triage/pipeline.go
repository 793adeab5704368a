package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notification"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Step names, one per independently retryable unit of work.
const (
	StepFetchTicket     = "fetch-ticket"
	StepUpdateStatus    = "update-ticket-status"
	StepAIProcessing    = "ai-processing"
	StepAssignModerator = "assign-moderator"
	StepSendEmail       = "send-email-notification"
)

// NonRetriableError marks a terminal step failure: retrying cannot help.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string { return e.Err.Error() }

func (e *NonRetriableError) Unwrap() error { return e.Err }

// NonRetriable wraps err so the step runner aborts instead of retrying.
func NonRetriable(err error) error {
	return &NonRetriableError{Err: err}
}

// Result reports the outcome of a pipeline run.
type Result struct {
	Success bool
}

// Dependencies bundles collaborators for the pipeline.
type Dependencies struct {
	Tickets    repository.TicketRepository
	Users      repository.UserRepository
	Classifier Classifier
	Mailer     notification.Mailer
	StepLog    StepLog
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Pipeline turns a freshly created ticket into a classified, assigned,
// notified ticket. Each step runs under per-step retry; completed mutating
// steps are recorded in the step log so a re-invoked run resumes rather than
// re-executing them. Earlier steps are never rolled back: a failed run
// leaves partial progress on the ticket.
type Pipeline struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	classifier Classifier
	mailer     notification.Mailer
	steps      StepLog
	logger     *zap.Logger
	metrics    *observability.Metrics
	retries    int
	backoff    time.Duration
	appURL     string
}

// NewPipeline constructs the pipeline.
func NewPipeline(cfg config.TriageConfig, appURL string, deps Dependencies) *Pipeline {
	return &Pipeline{
		tickets:    deps.Tickets,
		users:      deps.Users,
		classifier: deps.Classifier,
		mailer:     deps.Mailer,
		steps:      deps.StepLog,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		retries:    cfg.StepRetries,
		backoff:    cfg.RetryBackoff(),
		appURL:     appURL,
	}
}

// HandleTicketCreated adapts the pipeline to the event consumer.
func (p *Pipeline) HandleTicketCreated(ctx context.Context, event events.TicketCreatedEvent) error {
	if result := p.Run(ctx, event.TicketID); !result.Success {
		return fmt.Errorf("triage run for ticket %s failed", event.TicketID)
	}
	return nil
}

// Run executes the triage steps for one ticket. The ticket id doubles as the
// run id for the step log.
func (p *Pipeline) Run(ctx context.Context, ticketID string) Result {
	logger := p.logger.With(zap.String("ticket_id", ticketID))

	// fetch-ticket is read-only and always re-executed; a missing ticket is
	// terminal, not transient.
	var ticket *domain.Ticket
	_, err := p.runStep(ctx, ticketID, StepFetchTicket, false, func(ctx context.Context) error {
		found, err := p.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return NonRetriable(fmt.Errorf("ticket %s not found", ticketID))
			}
			return err
		}
		ticket = found
		return nil
	})
	if err != nil {
		logger.Error("triage aborted", zap.String("step", StepFetchTicket), zap.Error(err))
		return Result{Success: false}
	}

	_, err = p.runStep(ctx, ticketID, StepUpdateStatus, true, func(ctx context.Context) error {
		// Never regress a ticket that classification already advanced.
		if ticket.Status != "" && ticket.Status != domain.TicketStatusTodo {
			return nil
		}
		return p.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusTodo)
	})
	if err != nil {
		logger.Error("triage failed", zap.String("step", StepUpdateStatus), zap.Error(err))
		return Result{Success: false}
	}

	summary := "Not available"
	var relatedSkills []string
	skipped, err := p.runStep(ctx, ticketID, StepAIProcessing, true, func(ctx context.Context) error {
		result := p.classifier.Analyze(ctx, ticket.Title, ticket.Description)
		priority := domain.TicketPriority(result.Priority)
		if !domain.ValidPriority(priority) {
			priority = domain.TicketPriorityMedium
		}
		if err := p.tickets.UpdateTriage(ctx, ticketID, priority, result.HelpfulNotes, result.RelatedSkills, domain.TicketStatusInProgress); err != nil {
			return err
		}
		summary = result.Summary
		relatedSkills = result.RelatedSkills
		return nil
	})
	if err != nil {
		logger.Error("triage failed", zap.String("step", StepAIProcessing), zap.Error(err))
		return Result{Success: false}
	}
	if skipped {
		// No in-memory state survives across invocations; re-read what the
		// committed step persisted.
		refreshed, err := p.tickets.GetByID(ctx, ticketID)
		if err != nil {
			logger.Error("triage failed re-reading ticket", zap.Error(err))
			return Result{Success: false}
		}
		ticket = refreshed
		relatedSkills = refreshed.RelatedSkills
	}

	var assignee *domain.User
	skipped, err = p.runStep(ctx, ticketID, StepAssignModerator, true, func(ctx context.Context) error {
		moderators, err := p.users.ListByRole(ctx, domain.RoleModerator)
		if err != nil {
			return err
		}
		admins, err := p.users.ListByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		assignee = SelectAssignee(relatedSkills, moderators, admins)
		var assigneeID *string
		if assignee != nil {
			assigneeID = &assignee.ID
		}
		return p.tickets.UpdateAssignee(ctx, ticketID, assigneeID)
	})
	if err != nil {
		logger.Error("triage failed", zap.String("step", StepAssignModerator), zap.Error(err))
		return Result{Success: false}
	}
	if skipped {
		refreshed, err := p.tickets.GetByID(ctx, ticketID)
		if err != nil {
			logger.Error("triage failed re-reading ticket", zap.Error(err))
			return Result{Success: false}
		}
		if refreshed.AssignedTo != nil {
			user, err := p.users.GetByID(ctx, *refreshed.AssignedTo)
			if err != nil {
				logger.Error("triage failed loading assignee", zap.Error(err))
				return Result{Success: false}
			}
			assignee = user
		}
	}

	_, err = p.runStep(ctx, ticketID, StepSendEmail, true, func(ctx context.Context) error {
		if assignee == nil {
			return nil
		}
		// Re-fetch to render the fully updated state.
		final, err := p.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		creatorEmail := "Unknown"
		if creator, err := p.users.GetByID(ctx, final.CreatedBy); err == nil {
			creatorEmail = creator.Email
		}
		subject := fmt.Sprintf("[%s] New Ticket Assigned: %s",
			strings.ToUpper(string(final.Priority)), final.Title)
		return p.mailer.Send(ctx, assignee.Email, subject,
			renderAssignmentEmail(final, creatorEmail, summary, p.appURL))
	})
	if err != nil {
		logger.Error("triage failed", zap.String("step", StepSendEmail), zap.Error(err))
		return Result{Success: false}
	}

	logger.Info("triage run complete", zap.Bool("assigned", assignee != nil))
	return Result{Success: true}
}

// runStep drives one step under the retry policy. record selects whether the
// step participates in the step log; read-only steps do not, so they always
// re-execute. Returns skipped=true when the step log shows the step already
// committed in an earlier invocation.
func (p *Pipeline) runStep(ctx context.Context, runID, step string, record bool, fn func(context.Context) error) (skipped bool, err error) {
	if record {
		done, logErr := p.steps.Completed(ctx, runID, step)
		if logErr != nil {
			p.logger.Warn("step log unavailable", zap.String("step", step), zap.Error(logErr))
		} else if done {
			p.metrics.RecordStep(step, "skipped")
			return true, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			p.metrics.RecordStep(step, "retry")
			if err := sleepCtx(ctx, p.backoff*time.Duration(attempt)); err != nil {
				return false, err
			}
		}
		err := fn(ctx)
		if err == nil {
			if record {
				if markErr := p.steps.MarkCompleted(ctx, runID, step); markErr != nil {
					p.logger.Warn("failed to record completed step",
						zap.String("step", step), zap.Error(markErr))
				}
			}
			p.metrics.RecordStep(step, "ok")
			return false, nil
		}
		var terminal *NonRetriableError
		if errors.As(err, &terminal) {
			p.metrics.RecordStep(step, "failed")
			return false, err
		}
		lastErr = err
		p.logger.Warn("step attempt failed",
			zap.String("step", step), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	p.metrics.RecordStep(step, "failed")
	return false, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func renderAssignmentEmail(ticket *domain.Ticket, creatorEmail, summary, appURL string) string {
	skills := "Not specified"
	if len(ticket.RelatedSkills) > 0 {
		skills = strings.Join(ticket.RelatedSkills, ", ")
	}
	notes := ticket.HelpfulNotes
	if notes == "" {
		notes = "No additional notes available"
	}
	return fmt.Sprintf(`New Ticket Assigned to You

Ticket Details:
---------------
Title: %s
Description: %s
Priority: %s
Status: %s
Created By: %s
Created At: %s

AI Analysis:
-----------
Summary: %s
Required Skills: %s

Helpful Notes for Resolution:
---------------------------
%s

You can view the full ticket details and respond at: %s/tickets/%s
`,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		creatorEmail,
		ticket.CreatedAt.Format(time.RFC1123),
		summary,
		skills,
		notes,
		appURL,
		ticket.ID,
	)
}
