// Package tui is the terminal front end of the guided query workflow. It follows the Elm
// architecture of bubbletea: the Flow owns the wizard state, the Model translates keys into
// Flow operations and re-renders whenever the Flow reports a change.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	sessiondomain "github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/uistate"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/workflow"
)

const completeTimeout = 30 * time.Second

// MemberSource lists the recipients that can be selected.
type MemberSource func(ctx context.Context) ([]analysis.Recipient, error)

// SessionView is the read side of the session shown in the header.
type SessionView interface {
	Snapshot() *sessiondomain.Session
}

// Options configures a Model. Flow and Members are required.
type Options struct {
	Flow    *workflow.Flow
	Members MemberSource
	// Store holds sidebar, theme and notifications. If nil, a fresh one is created.
	Store   *uistate.Store
	Session SessionView
}

type flowChangedMsg struct{}

type membersMsg struct {
	recipients []analysis.Recipient
	err        error
}

type completedMsg struct {
	question string
	err      error
}

// Model is the wizard screen. It must be used through a pointer.
type Model struct {
	flow    *workflow.Flow
	members MemberSource
	store   *uistate.Store
	session SessionView

	changed     chan struct{}
	done        chan struct{}
	unsubscribe func()

	state      workflow.State
	recipients []analysis.Recipient
	loading    bool
	loadErr    error
	cursor     int
	chatTarget int
	status     string

	question textinput.Model
	compose  textinput.Model
	spinner  spinner.Model

	width, height int
}

// New returns a Model subscribed to opts.Flow. Call Close when the program exits.
func New(opts Options) *Model {
	if opts.Store == nil {
		opts.Store = uistate.New(uistate.Options{})
	}
	q := textinput.New()
	q.Placeholder = "What do you want to know from your team?"
	q.CharLimit = 500
	q.Focus()

	c := textinput.New()
	c.Placeholder = "Type a message and press enter"
	c.CharLimit = 1000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		flow:     opts.Flow,
		members:  opts.Members,
		store:    opts.Store,
		session:  opts.Session,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		state:    opts.Flow.State(),
		question: q,
		compose:  c,
		spinner:  sp,
	}
	m.unsubscribe = opts.Flow.Subscribe(func(workflow.State) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	return m
}

// Close stops listening to the flow.
func (m *Model) Close() {
	select {
	case <-m.done:
	default:
		close(m.done)
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForChange(), m.loadMembers())
}

// waitForChange turns the next flow notification into a message. Notifications that arrive
// while one is pending are coalesced; the handler always reads the latest state.
func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changed:
			return flowChangedMsg{}
		case <-m.done:
			return nil
		}
	}
}

func (m *Model) loadMembers() tea.Cmd {
	members := m.members
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
		defer cancel()
		rs, err := members(ctx)
		return membersMsg{recipients: rs, err: err}
	}
}

func (m *Model) complete() tea.Cmd {
	flow, question := m.flow, m.state.Question
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
		defer cancel()
		return completedMsg{question: question, err: flow.Complete(ctx)}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case flowChangedMsg:
		m.sync()
		return m, m.waitForChange()

	case membersMsg:
		m.loading = false
		m.loadErr = msg.err
		if msg.err == nil {
			m.recipients = msg.recipients
			if m.cursor >= len(m.recipients) {
				m.cursor = 0
			}
		} else {
			m.store.Notify(uistate.LevelError, "Could not load your team", msg.err.Error())
		}
		return m, nil

	case completedMsg:
		if msg.err != nil {
			m.status = "Could not complete: " + msg.err.Error()
			m.store.Notify(uistate.LevelError, "Query not completed", msg.err.Error())
		} else {
			m.status = "Query completed."
			m.store.Notify(uistate.LevelSuccess, "Query completed", msg.question)
			m.question.SetValue("")
		}
		m.sync()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// sync pulls the flow's state and moves input focus to the current step.
func (m *Model) sync() {
	prev := m.state
	m.state = m.flow.State()
	if m.state.LastError != "" && m.state.LastError != prev.LastError {
		m.store.Notify(uistate.LevelError, "Analysis failed", m.state.LastError)
	}
	switch m.state.Step {
	case workflow.StepInput:
		m.compose.Blur()
		m.question.Focus()
	case workflow.StepChatExecution:
		m.question.Blur()
		m.compose.Focus()
		if m.chatTarget >= len(m.state.Recipients) {
			m.chatTarget = 0
		}
	default:
		m.question.Blur()
		m.compose.Blur()
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "ctrl+b":
		m.store.ToggleSidebar()
		return m, nil
	case "ctrl+t":
		_ = m.store.SetTheme(nextTheme(m.store.Snapshot().Theme))
		return m, nil
	case "ctrl+n":
		m.store.MarkAllRead()
		return m, nil
	case "ctrl+x":
		m.flow.Abandon()
		m.question.SetValue("")
		m.status = "Query abandoned."
		m.sync()
		return m, nil
	}
	m.status = ""

	switch m.state.Step {
	case workflow.StepInput:
		return m.keyInput(msg)
	case workflow.StepTeamSelection:
		return m.keyTeamSelection(msg)
	case workflow.StepCommunicationAnalysis:
		return m.keyAnalysis(msg)
	case workflow.StepChatExecution:
		return m.keyChat(msg)
	}
	return m, nil
}

func (m *Model) keyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		m.flow.SetQuestion(m.question.Value())
		if !m.flow.Advance() {
			m.status = "Enter a question first."
		}
		m.sync()
		return m, nil
	}
	var cmd tea.Cmd
	m.question, cmd = m.question.Update(msg)
	return m, cmd
}

func (m *Model) keyTeamSelection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.recipients)-1 {
			m.cursor++
		}
	case " ", "x":
		if m.cursor < len(m.recipients) {
			m.flow.ToggleRecipient(m.recipients[m.cursor])
		}
	case "a":
		if len(m.state.Recipients) == len(m.recipients) {
			m.flow.SetRecipients(nil)
		} else {
			m.flow.SetRecipients(m.recipients)
		}
	case "r":
		if !m.loading {
			m.loading = true
			m.sync()
			return m, m.loadMembers()
		}
	case "esc":
		m.flow.Back()
	case "enter":
		if !m.flow.Advance() {
			m.status = "Select at least one team member."
		}
	}
	m.sync()
	return m, nil
}

func (m *Model) keyAnalysis(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.flow.Back()
	case "enter":
		m.flow.Advance()
	}
	m.sync()
	return m, nil
}

func (m *Model) keyChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		if n := len(m.state.Recipients); n > 0 {
			m.chatTarget = (m.chatTarget + 1) % n
		}
		return m, nil
	case "shift+tab":
		if n := len(m.state.Recipients); n > 0 {
			m.chatTarget = (m.chatTarget + n - 1) % n
		}
		return m, nil
	case "ctrl+r":
		if id := lastFailed(m.state); id != "" {
			if err := m.flow.Retry(id); err != nil {
				m.status = err.Error()
			}
		}
		m.sync()
		return m, nil
	case "ctrl+d":
		return m, m.complete()
	case "enter":
		if len(m.state.Recipients) == 0 {
			return m, nil
		}
		target := m.state.Recipients[m.chatTarget].ID
		if _, err := m.flow.Send(target, m.compose.Value()); err != nil {
			if !errors.Is(err, workflow.ErrEmptyMessage) {
				m.status = err.Error()
			}
			return m, nil
		}
		m.compose.SetValue("")
		m.sync()
		return m, nil
	}
	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return m, cmd
}

func lastFailed(s workflow.State) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Status == workflow.StatusFailed {
			return s.Messages[i].ID
		}
	}
	return ""
}

func nextTheme(t uistate.Theme) uistate.Theme {
	switch t {
	case uistate.ThemeLight:
		return uistate.ThemeDark
	case uistate.ThemeDark:
		return uistate.ThemeSystem
	}
	return uistate.ThemeLight
}
