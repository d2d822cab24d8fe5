// Package workflow implements the guided query wizard: a pure state machine over the four steps
// (Input, TeamSelection, CommunicationAnalysis, ChatExecution) and a Flow that drives it with
// the analysis service and the chat transport.
package workflow

import (
	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
)

// Step is a wizard step.
type Step int

const (
	StepInput Step = iota
	StepTeamSelection
	StepCommunicationAnalysis
	StepChatExecution
)

func (s Step) String() string {
	switch s {
	case StepInput:
		return "input"
	case StepTeamSelection:
		return "team-selection"
	case StepCommunicationAnalysis:
		return "communication-analysis"
	case StepChatExecution:
		return "chat-execution"
	}
	return "unknown"
}

// DeliveryStatus tracks a chat message. Outbound messages go sending -> delivered, or
// sending -> failed; inbound messages are received.
type DeliveryStatus string

const (
	StatusSending   DeliveryStatus = "sending"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
	StatusReceived  DeliveryStatus = "received"
)

// ChatMessage is a message in the exchange with its delivery state.
type ChatMessage struct {
	chat.Message
	Status DeliveryStatus
	// Error is the last send failure of a failed message.
	Error string
}

// OpeningMessageID identifies the system message that opens every exchange.
const OpeningMessageID = "opening"

// State is the wizard state. Values returned by Transition never share mutable memory with
// their input.
type State struct {
	Step     Step
	Question string
	// Recipients is the selection in the order it was made; IDs are unique.
	Recipients []analysis.Recipient
	// Breakdown holds one entry per selected recipient once analysis succeeded.
	Breakdown map[string]analysis.Breakdown
	// Messages is append-only within an exchange.
	Messages []ChatMessage
	// Busy is true while the analysis batch is in flight.
	Busy bool
	// Attempt numbers analysis batches; it increases each time CommunicationAnalysis is entered.
	Attempt int
	// LastError is the message of the last analysis failure, cleared when analysis restarts.
	LastError string
	// Version increases with every applied change.
	Version uint64
}

// Initial returns the empty state at StepInput.
func Initial() State {
	return State{Step: StepInput}
}

// Selected reports whether the recipient with id is selected.
func (s State) Selected(id string) bool {
	return s.recipientIndex(id) >= 0
}

func (s State) recipientIndex(id string) int {
	for i, r := range s.Recipients {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// BreakdownComplete reports whether Breakdown holds exactly one entry per selected recipient.
func (s State) BreakdownComplete() bool {
	if len(s.Recipients) == 0 || len(s.Breakdown) != len(s.Recipients) {
		return false
	}
	for _, r := range s.Recipients {
		if _, ok := s.Breakdown[r.ID]; !ok {
			return false
		}
	}
	return true
}

// Message returns the message with id.
func (s State) Message(id string) (ChatMessage, bool) {
	if i := s.messageIndex(id); i >= 0 {
		return s.Messages[i], true
	}
	return ChatMessage{}, false
}

func (s State) messageIndex(id string) int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	if s.Recipients != nil {
		out.Recipients = append([]analysis.Recipient(nil), s.Recipients...)
	}
	if s.Breakdown != nil {
		out.Breakdown = make(map[string]analysis.Breakdown, len(s.Breakdown))
		for k, b := range s.Breakdown {
			b.Questions = append([]string(nil), b.Questions...)
			out.Breakdown[k] = b
		}
	}
	if s.Messages != nil {
		out.Messages = append([]ChatMessage(nil), s.Messages...)
	}
	return out
}
