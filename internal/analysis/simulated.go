package analysis

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// DefaultChannel is used for recipients without a preferred channel.
const DefaultChannel = "email"

// SimulatedService produces deterministic breakdowns after a fixed delay, for offline use and
// for the development backend.
type SimulatedService struct {
	Delay time.Duration
}

// NewSimulatedService returns a SimulatedService that waits delay before answering.
func NewSimulatedService(delay time.Duration) *SimulatedService {
	return &SimulatedService{Delay: delay}
}

// Analyze implements Service. Cancelling ctx during the delay returns ctx.Err().
func (s *SimulatedService) Analyze(ctx context.Context, question string, recipients []Recipient) ([]Breakdown, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	out := make([]Breakdown, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, Simulate(question, r))
	}
	return out, nil
}

// Simulate builds the breakdown for one recipient. The same inputs always yield the same output.
func Simulate(question string, r Recipient) Breakdown {
	topic := strings.TrimRight(strings.TrimSpace(question), "?.! ")
	name := r.Name
	if name == "" {
		name = r.ID
	}
	area := r.Department
	if area == "" {
		area = "your area"
	}
	questions := []string{
		fmt.Sprintf("Hi %s, what is the current status of %q from your side?", name, topic),
		fmt.Sprintf("Are there any blockers or risks in %s that affect this?", area),
		"When can you share your next update?",
	}
	if r.Role != "" {
		questions = append(questions[:2:2], fmt.Sprintf("As %s, which decisions do you need from others?", r.Role), questions[2])
	}
	channel := r.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return Breakdown{
		RecipientID: r.ID,
		Questions:   questions,
		Priority:    priorityFor(question, r.ID),
		Channel:     channel,
	}
}

func priorityFor(question, recipientID string) Priority {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipientID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(question))
	switch h.Sum32() % 3 {
	case 0:
		return PriorityHigh
	case 1:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

var _ Service = (*SimulatedService)(nil)
