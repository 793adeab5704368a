package events

// TicketCreated is the event name carried on the trigger queue.
const TicketCreated = "ticket/created"

// TicketCreatedEvent is the payload emitted when a user submits a ticket.
// It carries everything the triage pipeline needs to start a run.
type TicketCreatedEvent struct {
	TicketID    string `json:"ticketId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
}
