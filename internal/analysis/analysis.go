// Package analysis turns a question and a set of recipients into one breakdown per recipient:
// the ordered sub-questions to ask, a priority tier and the channel to ask on.
package analysis

import (
	"context"
	"errors"
	"fmt"
)

// Priority is the urgency tier of a breakdown.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Recipient is a team member a question is addressed to.
type Recipient struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	// Channel is the recipient's preferred channel label, if known.
	Channel string `json:"channel,omitempty"`
}

// Breakdown is the plan for one recipient.
type Breakdown struct {
	RecipientID string   `json:"recipient_id"`
	Questions   []string `json:"questions"`
	Priority    Priority `json:"priority"`
	Channel     string   `json:"channel"`
}

// Request is the POST /analysis/breakdown body.
type Request struct {
	Question   string      `json:"question"`
	Recipients []Recipient `json:"recipients"`
}

// Response is the POST /analysis/breakdown result.
type Response struct {
	Breakdowns []Breakdown `json:"breakdowns"`
}

// Service produces breakdowns. Implementations return exactly one breakdown per recipient or an error;
// partial results are never returned.
type Service interface {
	Analyze(ctx context.Context, question string, recipients []Recipient) ([]Breakdown, error)
}

var (
	// ErrNoRecipients is returned when Analyze is called with an empty recipient list.
	ErrNoRecipients = errors.New("analysis: at least one recipient is required")
	// ErrIncomplete is returned when a result does not cover every recipient exactly once.
	ErrIncomplete = errors.New("analysis: breakdowns do not match recipients")
)

// Check verifies that breakdowns cover recipients exactly once each and carry usable fields.
// The result is reordered to follow recipients.
func Check(recipients []Recipient, breakdowns []Breakdown) ([]Breakdown, error) {
	if len(breakdowns) != len(recipients) {
		return nil, fmt.Errorf("%w: got %d for %d recipients", ErrIncomplete, len(breakdowns), len(recipients))
	}
	byID := make(map[string]Breakdown, len(breakdowns))
	for _, b := range breakdowns {
		if _, dup := byID[b.RecipientID]; dup {
			return nil, fmt.Errorf("%w: duplicate breakdown for %q", ErrIncomplete, b.RecipientID)
		}
		if len(b.Questions) == 0 || !b.Priority.Valid() {
			return nil, fmt.Errorf("%w: unusable breakdown for %q", ErrIncomplete, b.RecipientID)
		}
		byID[b.RecipientID] = b
	}
	out := make([]Breakdown, 0, len(recipients))
	for _, r := range recipients {
		b, ok := byID[r.ID]
		if !ok {
			return nil, fmt.Errorf("%w: missing breakdown for %q", ErrIncomplete, r.ID)
		}
		out = append(out, b)
	}
	return out, nil
}
