package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrWrongStep is returned when an operation is not available at the current step.
	ErrWrongStep = errors.New("workflow: not available at this step")
	// ErrUnknownRecipient is returned when sending to a recipient that is not selected.
	ErrUnknownRecipient = errors.New("workflow: recipient is not part of this query")
	// ErrEmptyMessage is returned when sending a blank message.
	ErrEmptyMessage = errors.New("workflow: message is empty")
	// ErrNotRetryable is returned by Retry for a message that is not failed.
	ErrNotRetryable = errors.New("workflow: only failed messages can be retried")
	// ErrClosed is returned by Send and Retry after Close.
	ErrClosed = errors.New("workflow: flow closed")
)

// Exchange is the finished query handed to the completion callback.
type Exchange struct {
	FlowID      string
	Question    string
	Recipients  []analysis.Recipient
	Breakdown   map[string]analysis.Breakdown
	Messages    []ChatMessage
	CompletedAt time.Time
}

// CompletionFunc receives the finished exchange, typically to hand it to the report collaborator.
type CompletionFunc func(ctx context.Context, ex Exchange) error

// Listener is called with a copy of the state after every change. Calls may overlap; use
// State.Version to drop late ones.
type Listener func(s State)

// FlowOptions configures a Flow. Analysis is required.
type FlowOptions struct {
	Analysis analysis.Service
	// Transport carries chat messages. Without one, sends fail and are marked failed.
	Transport  chat.Transport
	OnComplete CompletionFunc
	// Timeout bounds each analysis batch and each send. Default 10s.
	Timeout time.Duration
	Logger  *zap.Logger
	Now     func() time.Time
}

// Flow drives one wizard at a time. Async results carry the generation they were started under
// and are dropped once the flow has been completed or abandoned since. Safe for concurrent use.
type Flow struct {
	analysis   analysis.Service
	transport  chat.Transport
	onComplete CompletionFunc
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
	tracer     trace.Tracer

	mu        sync.Mutex
	id        string
	gen       uint64
	state     State
	ctx       context.Context
	cancel    context.CancelFunc
	listeners map[int]Listener
	nextID    int

	wg       sync.WaitGroup
	stopPump chan struct{}
	pumpDone chan struct{}
	closed   bool
}

// NewFlow returns a Flow at StepInput. When a transport is given, its inbound messages are
// applied until Close.
func NewFlow(opts FlowOptions) *Flow {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	f := &Flow{
		analysis:   opts.Analysis,
		transport:  opts.Transport,
		onComplete: opts.OnComplete,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
		now:        opts.Now,
		tracer:     otel.Tracer("singlebrief.workflow"),
		state:      Initial(),
		listeners:  make(map[int]Listener),
		stopPump:   make(chan struct{}),
		pumpDone:   make(chan struct{}),
	}
	f.resetLocked()
	if f.transport != nil {
		go f.pump()
	} else {
		close(f.pumpDone)
	}
	return f
}

// resetLocked starts a new generation with a fresh ID and context.
func (f *Flow) resetLocked() {
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	f.id = uuid.New().String()
	f.ctx, f.cancel = context.WithCancel(context.Background())
}

// ID returns the current flow instance ID; it changes on completion and abandonment.
func (f *Flow) ID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

// State returns a copy of the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// Subscribe registers fn for state changes and returns a function that removes it.
func (f *Flow) Subscribe(fn Listener) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// dispatch applies e if gen is still current and notifies listeners on change.
// It reports whether the state changed.
func (f *Flow) dispatch(gen uint64, e Event) bool {
	return f.commit(gen, e, nil)
}

// commit is dispatch with a hook: when e changed the state, then runs with the resulting state
// before the lock is released, so it sees exactly what e produced. Nothing is applied once the
// flow is closed.
func (f *Flow) commit(gen uint64, e Event, then func(next State)) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	if gen != f.gen {
		f.mu.Unlock()
		f.logger.Debug("workflow: dropping result for a finished flow")
		return false
	}
	before := f.state.Version
	f.state = Transition(f.state, e)
	if f.state.Version == before {
		f.mu.Unlock()
		return false
	}
	snap := f.state.Clone()
	if then != nil {
		then(snap)
	}
	fns := make([]Listener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(snap.Clone())
	}
	return true
}

func (f *Flow) current() (uint64, context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen, f.ctx
}

func (f *Flow) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SetQuestion sets the question text at StepInput.
func (f *Flow) SetQuestion(text string) bool {
	gen, _ := f.current()
	return f.dispatch(gen, SetQuestion{Text: text})
}

// ToggleRecipient adds or removes a recipient at StepTeamSelection.
func (f *Flow) ToggleRecipient(r analysis.Recipient) bool {
	gen, _ := f.current()
	return f.dispatch(gen, ToggleRecipient{Recipient: r})
}

// SetRecipients replaces the selection at StepTeamSelection.
func (f *Flow) SetRecipients(rs []analysis.Recipient) bool {
	gen, _ := f.current()
	return f.dispatch(gen, SetRecipients{Recipients: rs})
}

// Back moves one step backward.
func (f *Flow) Back() bool {
	gen, _ := f.current()
	return f.dispatch(gen, Back{})
}

// Advance moves one step forward when the guard holds and reports whether it moved. Entering
// CommunicationAnalysis starts the analysis batch in the background.
func (f *Flow) Advance() bool {
	gen, ctx := f.current()
	var batch *State
	moved := f.commit(gen, Advance{At: f.now().UTC()}, func(next State) {
		if next.Step == StepCommunicationAnalysis && next.Busy {
			f.wg.Add(1)
			batch = &next
		}
	})
	if batch != nil {
		go f.runAnalysis(ctx, gen, batch.Attempt, batch.Question, batch.Recipients)
	}
	return moved
}

func (f *Flow) runAnalysis(ctx context.Context, gen uint64, attempt int, question string, recipients []analysis.Recipient) {
	defer f.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	ctx, span := f.tracer.Start(ctx, "workflow.analyze", trace.WithAttributes(attribute.Int("recipients", len(recipients))))
	defer span.End()

	breakdowns, err := f.analysis.Analyze(ctx, question, recipients)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		f.logger.Warn("workflow: analysis failed", zap.Error(err))
		f.dispatch(gen, BreakdownFailed{Attempt: attempt, Err: err.Error()})
		return
	}
	f.dispatch(gen, BreakdownReady{Attempt: attempt, Breakdowns: breakdowns})
}

// Send queues a message to a selected recipient and sends it in the background. The returned ID
// identifies the message in State.Messages; its status ends delivered or failed.
func (f *Flow) Send(recipientID, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyMessage
	}
	if f.isClosed() {
		return "", ErrClosed
	}
	gen, ctx := f.current()
	s := f.State()
	if s.Step != StepChatExecution {
		return "", ErrWrongStep
	}
	if !s.Selected(recipientID) {
		return "", ErrUnknownRecipient
	}
	m := chat.Message{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		Author:      chat.AuthorUser,
		Body:        body,
		SentAt:      f.now().UTC(),
	}
	if !f.commit(gen, MessageQueued{Message: m}, func(State) { f.wg.Add(1) }) {
		if f.isClosed() {
			return "", ErrClosed
		}
		return "", ErrWrongStep
	}
	go f.deliver(ctx, gen, m)
	return m.ID, nil
}

// Retry re-sends a failed message.
func (f *Flow) Retry(messageID string) error {
	if f.isClosed() {
		return ErrClosed
	}
	gen, ctx := f.current()
	s := f.State()
	m, ok := s.Message(messageID)
	if !ok || m.Status != StatusFailed {
		return ErrNotRetryable
	}
	if !f.commit(gen, MessageQueued{Message: m.Message}, func(State) { f.wg.Add(1) }) {
		if f.isClosed() {
			return ErrClosed
		}
		return ErrNotRetryable
	}
	go f.deliver(ctx, gen, m.Message)
	return nil
}

func (f *Flow) deliver(ctx context.Context, gen uint64, m chat.Message) {
	defer f.wg.Done()
	if f.transport == nil {
		f.dispatch(gen, MessageFailed{ID: m.ID, Err: "no chat transport configured"})
		return
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.transport.Send(ctx, m); err != nil {
		f.logger.Warn("workflow: send failed", zap.String("message_id", m.ID), zap.Error(err))
		f.dispatch(gen, MessageFailed{ID: m.ID, Err: err.Error()})
		return
	}
	f.dispatch(gen, MessageDelivered{ID: m.ID})
}

func (f *Flow) pump() {
	defer close(f.pumpDone)
	in := f.transport.Inbound()
	for {
		select {
		case <-f.stopPump:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			gen, _ := f.current()
			f.dispatch(gen, MessageReceived{Message: m})
		}
	}
}

// Complete hands a copy of the exchange to the completion callback and then resets the flow.
// When the callback fails the flow is left as it was and the error is returned.
func (f *Flow) Complete(ctx context.Context) error {
	f.mu.Lock()
	if f.state.Step != StepChatExecution {
		f.mu.Unlock()
		return ErrWrongStep
	}
	s := f.state.Clone()
	gen := f.gen
	ex := Exchange{
		FlowID:      f.id,
		Question:    s.Question,
		Recipients:  s.Recipients,
		Breakdown:   s.Breakdown,
		Messages:    s.Messages,
		CompletedAt: f.now().UTC(),
	}
	f.mu.Unlock()

	if f.onComplete != nil {
		if err := f.onComplete(ctx, ex); err != nil {
			return err
		}
	}
	f.mu.Lock()
	if gen != f.gen {
		// Abandoned while the callback ran.
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()
	f.restart(gen)
	return nil
}

// Abandon discards the current flow without calling the completion callback. In-flight analysis
// and sends are cancelled and their results dropped.
func (f *Flow) Abandon() {
	gen, _ := f.current()
	f.restart(gen)
}

func (f *Flow) restart(gen uint64) {
	f.dispatch(gen, Reset{})
	f.mu.Lock()
	if gen == f.gen && !f.closed {
		f.resetLocked()
	}
	f.mu.Unlock()
}

// Wait blocks until background analysis and sends have finished.
func (f *Flow) Wait() {
	f.wg.Wait()
}

// Close abandons the flow, stops applying inbound messages and waits for background work.
// Afterwards every operation is a no-op. The transport is not closed.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.cancel()
	f.mu.Unlock()
	close(f.stopPump)
	<-f.pumpDone
	f.wg.Wait()
}
