// Package chat carries the live exchange between the asker and the recipients of a query.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Author says who wrote a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorSystem    Author = "system"
	AuthorRecipient Author = "recipient"
)

// Message is one chat frame. RecipientID names the conversation partner for both directions.
type Message struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Author      Author    `json:"author"`
	Body        string    `json:"body"`
	SentAt      time.Time `json:"sent_at"`
}

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("chat: transport closed")

// Transport sends outbound messages and delivers inbound ones. Messages from one recipient are
// delivered on Inbound in the order they were produced. Inbound is closed when the transport stops.
type Transport interface {
	Send(ctx context.Context, m Message) error
	Inbound() <-chan Message
	Close() error
}

// Responder produces the replies a recipient sends to an outbound message.
type Responder func(m Message) []Message

// AcknowledgeResponder answers each user message with one short acknowledgement from the recipient.
func AcknowledgeResponder(m Message) []Message {
	if m.Author != AuthorUser {
		return nil
	}
	body := strings.TrimSpace(m.Body)
	if r := []rune(body); len(r) > 60 {
		body = string(r[:57]) + "..."
	}
	return []Message{{
		ID:          uuid.New().String(),
		RecipientID: m.RecipientID,
		Author:      AuthorRecipient,
		Body:        fmt.Sprintf("Thanks, noted %q. I'll follow up shortly.", body),
		SentAt:      time.Now().UTC(),
	}}
}
