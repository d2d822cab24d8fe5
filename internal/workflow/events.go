package workflow

import (
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
)

// Event is an input to Transition. The set is closed: only the types in this file implement it.
type Event interface {
	isEvent()
}

// SetQuestion replaces the question text. Accepted at StepInput.
type SetQuestion struct{ Text string }

// ToggleRecipient adds or removes a recipient. Accepted at StepTeamSelection.
type ToggleRecipient struct{ Recipient analysis.Recipient }

// SetRecipients replaces the selection; duplicate IDs are dropped. Accepted at StepTeamSelection.
type SetRecipients struct{ Recipients []analysis.Recipient }

// Advance moves one step forward when the current step's guard holds. At stamps messages
// created by the move.
type Advance struct{ At time.Time }

// Back moves one step backward, keeping all entered data.
type Back struct{}

// BreakdownReady delivers the analysis batch started as Attempt.
type BreakdownReady struct {
	Attempt    int
	Breakdowns []analysis.Breakdown
}

// BreakdownFailed reports that the analysis batch started as Attempt failed.
type BreakdownFailed struct {
	Attempt int
	Err     string
}

// MessageQueued appends an outbound message as sending, or moves a failed message with the
// same ID back to sending.
type MessageQueued struct{ Message chat.Message }

// MessageDelivered marks a sending message delivered.
type MessageDelivered struct{ ID string }

// MessageFailed marks a sending message failed. The message stays in the exchange.
type MessageFailed struct {
	ID  string
	Err string
}

// MessageReceived appends an inbound message from a selected recipient.
type MessageReceived struct{ Message chat.Message }

// Reset returns to the initial state.
type Reset struct{}

func (SetQuestion) isEvent()      {}
func (ToggleRecipient) isEvent()  {}
func (SetRecipients) isEvent()    {}
func (Advance) isEvent()          {}
func (Back) isEvent()             {}
func (BreakdownReady) isEvent()   {}
func (BreakdownFailed) isEvent()  {}
func (MessageQueued) isEvent()    {}
func (MessageDelivered) isEvent() {}
func (MessageFailed) isEvent()    {}
func (MessageReceived) isEvent()  {}
func (Reset) isEvent()            {}
