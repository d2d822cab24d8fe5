package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/uistate"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/workflow"
)

type palette struct {
	accent, muted, ok, warn, bad lipgloss.Color
}

func paletteFor(t uistate.Theme) palette {
	dark := palette{accent: "#5B8DEF", muted: "#A0AEC0", ok: "#4CAF50", warn: "#F7B801", bad: "#FF6B6B"}
	light := palette{accent: "#1D4ED8", muted: "#4A5568", ok: "#2F855A", warn: "#B7791F", bad: "#C53030"}
	switch t {
	case uistate.ThemeLight:
		return light
	case uistate.ThemeDark:
		return dark
	}
	if lipgloss.HasDarkBackground() {
		return dark
	}
	return light
}

type styles struct {
	title, step, current, muted, ok, warn, bad, sidebar lipgloss.Style
}

func stylesFor(t uistate.Theme) styles {
	p := paletteFor(t)
	return styles{
		title:   lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		step:    lipgloss.NewStyle().Foreground(p.muted),
		current: lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(p.muted),
		ok:      lipgloss.NewStyle().Foreground(p.ok),
		warn:    lipgloss.NewStyle().Foreground(p.warn),
		bad:     lipgloss.NewStyle().Foreground(p.bad).Bold(true),
		sidebar: lipgloss.NewStyle().Padding(0, 2, 0, 0).MarginRight(2).
			Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(p.muted),
	}
}

var stepTitles = []string{"Question", "Team", "Analysis", "Chat"}

// View implements tea.Model.
func (m *Model) View() string {
	ui := m.store.Snapshot()
	st := stylesFor(ui.Theme)

	var body string
	switch m.state.Step {
	case workflow.StepInput:
		body = m.viewInput(st)
	case workflow.StepTeamSelection:
		body = m.viewTeamSelection(st)
	case workflow.StepCommunicationAnalysis:
		body = m.viewAnalysis(st)
	case workflow.StepChatExecution:
		body = m.viewChat(st)
	}
	if m.status != "" {
		body += "\n" + st.warn.Render(m.status)
	}
	body += "\n\n" + st.muted.Render(m.help())

	header := m.header(st, ui)
	if ui.SidebarOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, st.sidebar.Render(m.sidebar(st)), body)
	}
	return header + "\n\n" + body + "\n"
}

func (m *Model) header(st styles, ui uistate.Snapshot) string {
	h := st.title.Render("SingleBrief")
	if m.session != nil {
		if s := m.session.Snapshot(); s != nil && s.User != nil {
			who := s.User.FullName
			if s.Organization != nil {
				who += " · " + s.Organization.Name
			}
			h += "  " + st.muted.Render(who)
		}
	}
	if ui.Unread > 0 {
		h += "  " + st.warn.Render(fmt.Sprintf("● %d", ui.Unread))
		if n := ui.Notifications[0]; !n.Read {
			line := n.Title
			if n.Body != "" {
				line += ": " + n.Body
			}
			h += " " + st.muted.Render(line)
		}
	}
	return h
}

func (m *Model) sidebar(st styles) string {
	var b strings.Builder
	for i, title := range stepTitles {
		line := fmt.Sprintf("%d. %s", i+1, title)
		if workflow.Step(i) == m.state.Step {
			b.WriteString(st.current.Render("› " + line))
		} else {
			b.WriteString(st.step.Render("  " + line))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *Model) viewInput(st styles) string {
	return st.title.Render("What would you like to ask?") + "\n\n" + m.question.View()
}

func (m *Model) viewTeamSelection(st styles) string {
	var b strings.Builder
	b.WriteString(st.title.Render("Who should answer?"))
	b.WriteString("\n" + st.muted.Render(m.state.Question) + "\n\n")
	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading your team…")
	case m.loadErr != nil:
		b.WriteString(st.bad.Render("Could not load your team: " + m.loadErr.Error()))
	case len(m.recipients) == 0:
		b.WriteString(st.muted.Render("Your team has no active members yet."))
	}
	for i, r := range m.recipients {
		cursor := "  "
		if i == m.cursor {
			cursor = "› "
		}
		box := "[ ]"
		if m.state.Selected(r.ID) {
			box = "[x]"
		}
		line := cursor + box + " " + r.Name
		if detail := recipientDetail(r); detail != "" {
			line += "  " + st.muted.Render(detail)
		}
		b.WriteString(line + "\n")
	}
	if m.state.LastError != "" {
		b.WriteString("\n" + st.bad.Render("Analysis failed: "+m.state.LastError) + "\n")
	}
	return b.String()
}

func recipientDetail(r analysis.Recipient) string {
	var parts []string
	for _, s := range []string{r.Role, r.Department} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func (m *Model) viewAnalysis(st styles) string {
	var b strings.Builder
	b.WriteString(st.title.Render("How each person will be asked"))
	b.WriteString("\n\n")
	if m.state.Busy {
		b.WriteString(m.spinner.View() + fmt.Sprintf(" Analyzing for %d recipients…", len(m.state.Recipients)))
		return b.String()
	}
	for _, r := range m.state.Recipients {
		bd, ok := m.state.Breakdown[r.ID]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("%s  %s via %s\n", st.current.Render(r.Name), priorityStyle(st, bd.Priority).Render(string(bd.Priority)), bd.Channel))
		for i, q := range bd.Questions {
			b.WriteString(fmt.Sprintf("   %d. %s\n", i+1, q))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func priorityStyle(st styles, p analysis.Priority) lipgloss.Style {
	switch p {
	case analysis.PriorityHigh:
		return st.bad
	case analysis.PriorityMedium:
		return st.warn
	}
	return st.ok
}

func (m *Model) viewChat(st styles) string {
	names := make(map[string]string, len(m.state.Recipients))
	for _, r := range m.state.Recipients {
		names[r.ID] = r.Name
	}
	var b strings.Builder
	for _, msg := range m.state.Messages {
		switch msg.Author {
		case chat.AuthorSystem:
			b.WriteString(st.muted.Render(msg.Body))
		case chat.AuthorRecipient:
			b.WriteString(st.current.Render(names[msg.RecipientID]+": ") + msg.Body)
		default:
			b.WriteString("you → " + names[msg.RecipientID] + ": " + msg.Body + " " + statusMark(st, msg))
		}
		b.WriteByte('\n')
	}
	if len(m.state.Recipients) > 0 {
		target := m.state.Recipients[m.chatTarget%len(m.state.Recipients)]
		b.WriteString("\nTo " + st.current.Render(target.Name) + "\n")
	}
	b.WriteString(m.compose.View())
	return b.String()
}

func statusMark(st styles, msg workflow.ChatMessage) string {
	switch msg.Status {
	case workflow.StatusSending:
		return st.muted.Render("…")
	case workflow.StatusDelivered:
		return st.ok.Render("✓")
	case workflow.StatusFailed:
		return st.bad.Render("✗ not sent: " + msg.Error)
	}
	return ""
}

func (m *Model) help() string {
	common := "ctrl+b sidebar · ctrl+t theme · ctrl+x abandon · ctrl+c quit"
	switch m.state.Step {
	case workflow.StepInput:
		return "enter continue · " + common
	case workflow.StepTeamSelection:
		return "space select · a all · r reload · enter analyze · esc back · " + common
	case workflow.StepCommunicationAnalysis:
		return "enter start chat · esc back · " + common
	case workflow.StepChatExecution:
		return "enter send · tab next person · ctrl+r retry failed · ctrl+d done · " + common
	}
	return common
}
