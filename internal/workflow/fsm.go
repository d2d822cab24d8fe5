package workflow

import (
	"fmt"
	"strings"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
)

// CanAdvance reports whether Advance would leave the current step.
func CanAdvance(s State) bool {
	switch s.Step {
	case StepInput:
		return strings.TrimSpace(s.Question) != ""
	case StepTeamSelection:
		return len(s.Recipients) > 0
	case StepCommunicationAnalysis:
		return !s.Busy && s.BreakdownComplete()
	}
	return false
}

// CanBack reports whether Back would leave the current step.
func CanBack(s State) bool {
	switch s.Step {
	case StepTeamSelection:
		return true
	case StepCommunicationAnalysis:
		return !s.Busy
	}
	return false
}

// Transition applies e to s. An event that is not accepted in the current state returns s
// unchanged (same Version); an accepted one returns a new state with Version+1.
func Transition(s State, e Event) State {
	next, ok := apply(s.Clone(), e)
	if !ok {
		return s
	}
	next.Version = s.Version + 1
	return next
}

func apply(s State, e Event) (State, bool) {
	switch e := e.(type) {
	case SetQuestion:
		if s.Step != StepInput || s.Question == e.Text {
			return s, false
		}
		s.Question = e.Text
		return s, true

	case ToggleRecipient:
		if s.Step != StepTeamSelection || e.Recipient.ID == "" {
			return s, false
		}
		if i := s.recipientIndex(e.Recipient.ID); i >= 0 {
			s.Recipients = append(s.Recipients[:i], s.Recipients[i+1:]...)
		} else {
			s.Recipients = append(s.Recipients, e.Recipient)
		}
		s.Breakdown = nil
		return s, true

	case SetRecipients:
		if s.Step != StepTeamSelection {
			return s, false
		}
		s.Recipients = nil
		for _, r := range e.Recipients {
			if r.ID != "" && s.recipientIndex(r.ID) < 0 {
				s.Recipients = append(s.Recipients, r)
			}
		}
		s.Breakdown = nil
		return s, true

	case Advance:
		if !CanAdvance(s) {
			return s, false
		}
		switch s.Step {
		case StepInput:
			s.Question = strings.TrimSpace(s.Question)
			s.Step = StepTeamSelection
		case StepTeamSelection:
			s.Step = StepCommunicationAnalysis
			s.Busy = true
			s.Attempt++
			s.Breakdown = nil
			s.LastError = ""
		case StepCommunicationAnalysis:
			s.Step = StepChatExecution
			s.Messages = []ChatMessage{{
				Message: chat.Message{
					ID:     OpeningMessageID,
					Author: chat.AuthorSystem,
					Body:   openingBody(s.Question, len(s.Recipients)),
					SentAt: e.At,
				},
				Status: StatusDelivered,
			}}
		}
		return s, true

	case Back:
		if !CanBack(s) {
			return s, false
		}
		s.Step--
		return s, true

	case BreakdownReady:
		if s.Step != StepCommunicationAnalysis || !s.Busy || e.Attempt != s.Attempt {
			return s, false
		}
		ordered, err := analysis.Check(s.Recipients, e.Breakdowns)
		if err != nil {
			return failAnalysis(s, err.Error()), true
		}
		s.Breakdown = make(map[string]analysis.Breakdown, len(ordered))
		for _, b := range ordered {
			s.Breakdown[b.RecipientID] = b
		}
		s.Busy = false
		return s, true

	case BreakdownFailed:
		if s.Step != StepCommunicationAnalysis || !s.Busy || e.Attempt != s.Attempt {
			return s, false
		}
		return failAnalysis(s, e.Err), true

	case MessageQueued:
		if s.Step != StepChatExecution || e.Message.ID == "" {
			return s, false
		}
		if i := s.messageIndex(e.Message.ID); i >= 0 {
			if s.Messages[i].Status != StatusFailed {
				return s, false
			}
			s.Messages[i].Status = StatusSending
			s.Messages[i].Error = ""
			return s, true
		}
		if !s.Selected(e.Message.RecipientID) {
			return s, false
		}
		s.Messages = append(s.Messages, ChatMessage{Message: e.Message, Status: StatusSending})
		return s, true

	case MessageDelivered:
		i := s.messageIndex(e.ID)
		if s.Step != StepChatExecution || i < 0 || s.Messages[i].Status != StatusSending {
			return s, false
		}
		s.Messages[i].Status = StatusDelivered
		return s, true

	case MessageFailed:
		i := s.messageIndex(e.ID)
		if s.Step != StepChatExecution || i < 0 || s.Messages[i].Status != StatusSending {
			return s, false
		}
		s.Messages[i].Status = StatusFailed
		s.Messages[i].Error = e.Err
		return s, true

	case MessageReceived:
		if s.Step != StepChatExecution || !s.Selected(e.Message.RecipientID) || s.messageIndex(e.Message.ID) >= 0 {
			return s, false
		}
		s.Messages = append(s.Messages, ChatMessage{Message: e.Message, Status: StatusReceived})
		return s, true

	case Reset:
		return Initial(), true
	}
	return s, false
}

// failAnalysis returns to team selection with the selection intact.
func failAnalysis(s State, msg string) State {
	s.Step = StepTeamSelection
	s.Busy = false
	s.Breakdown = nil
	s.LastError = msg
	return s
}

func openingBody(question string, recipients int) string {
	noun := "team members"
	if recipients == 1 {
		noun = "team member"
	}
	return fmt.Sprintf("Asking %d %s: %s", recipients, noun, question)
}
