package chat

import (
	"context"
	"sync"
	"time"
)

// Loopback is an in-process Transport: outbound messages are answered by a Responder after an
// optional delay. Replies are produced by one goroutine, so per-recipient order is kept.
type Loopback struct {
	respond Responder
	delay   time.Duration
	sendErr func(Message) error

	queue   chan Message
	inbound chan Message
	done    chan struct{}
	stopped chan struct{}

	mu     sync.Mutex
	closed bool
}

// LoopbackOption configures a Loopback.
type LoopbackOption func(*Loopback)

// WithReplyDelay delays every reply by d.
func WithReplyDelay(d time.Duration) LoopbackOption {
	return func(l *Loopback) { l.delay = d }
}

// WithSendError makes Send fail with the error fn returns for a message (nil lets it through).
func WithSendError(fn func(Message) error) LoopbackOption {
	return func(l *Loopback) { l.sendErr = fn }
}

// NewLoopback starts a Loopback. A nil respond uses AcknowledgeResponder.
func NewLoopback(respond Responder, opts ...LoopbackOption) *Loopback {
	if respond == nil {
		respond = AcknowledgeResponder
	}
	l := &Loopback{
		respond: respond,
		queue:   make(chan Message, 64),
		inbound: make(chan Message, 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

// Send implements Transport.
func (l *Loopback) Send(ctx context.Context, m Message) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if l.sendErr != nil {
		if err := l.sendErr(m); err != nil {
			return err
		}
	}
	select {
	case l.queue <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Inbound implements Transport.
func (l *Loopback) Inbound() <-chan Message { return l.inbound }

// Close stops the reply goroutine and closes Inbound. Pending replies are dropped.
func (l *Loopback) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	close(l.done)
	<-l.stopped
	return nil
}

func (l *Loopback) run() {
	defer close(l.stopped)
	defer close(l.inbound)
	for {
		var m Message
		select {
		case <-l.done:
			return
		case m = <-l.queue:
		}
		if l.delay > 0 {
			t := time.NewTimer(l.delay)
			select {
			case <-l.done:
				t.Stop()
				return
			case <-t.C:
			}
		}
		for _, reply := range l.respond(m) {
			select {
			case l.inbound <- reply:
			case <-l.done:
				return
			}
		}
	}
}

var _ Transport = (*Loopback)(nil)
