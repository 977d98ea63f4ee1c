// Package tui is the terminal front end: a live view of the session state,
// the editable preview, and the most recent delivered transcript.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"earworm/internal/domain"
)

const commandTimeout = 10 * time.Second

// Controller is the part of the session coordinator the TUI drives.
type Controller interface {
	HotkeyDown(ctx context.Context) error
	HotkeyUp(ctx context.Context) error
	Accept(ctx context.Context) error
	Copy(ctx context.Context) error
	Cancel(ctx context.Context) error
	ReRecord(ctx context.Context) error
	Edit(ctx context.Context, text string) error
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	Status() domain.Status
}

// Model is the root bubbletea model.
type Model struct {
	ctrl Controller

	state  domain.SessionState
	reason domain.SessionStateReason

	preview    *domain.PreviewView
	editing    bool
	editBuffer []rune

	lastRaw   string
	lastFinal string
	errorText string

	width int
}

func New(ctrl Controller) Model {
	return Model{ctrl: ctrl, state: ctrl.Status().State}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StateMsg:
		m.state = msg.State
		m.reason = msg.Reason
		if msg.State != domain.SessionStatePreviewing {
			m.preview = nil
			m.editing = false
		}
		if msg.State == domain.SessionStateRecording {
			m.errorText = ""
		}
		return m, nil

	case PreviewMsg:
		view := msg.View
		m.preview = &view
		return m, nil

	case FinalMsg:
		m.lastRaw = msg.Raw
		m.lastFinal = msg.Final
		return m, nil

	case ErrorMsg:
		m.errorText = fmt.Sprintf("%s: %s", msg.Code, msg.Detail)
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			m.errorText = fmt.Sprintf("%s: %v", msg.name, msg.err)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m, tea.Quit
	}
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch key {
	case KeyQuit:
		return m, tea.Quit
	case KeySpace:
		// Terminals report no key release, so space toggles push-to-talk.
		if m.state == domain.SessionStateRecording {
			return m, m.call("stop", m.ctrl.HotkeyUp)
		}
		return m, m.call("record", m.ctrl.HotkeyDown)
	}

	if m.preview == nil {
		if key == KeyEsc && (m.state == domain.SessionStateRecording || m.state == domain.SessionStateTranscribing) {
			return m, m.call("cancel", m.ctrl.Cancel)
		}
		return m, nil
	}

	switch key {
	case KeyEnter:
		return m, m.call("accept", m.ctrl.Accept)
	case KeyEsc:
		return m, m.call("cancel", m.ctrl.Cancel)
	case KeyReRecord:
		return m, m.call("rerecord", m.ctrl.ReRecord)
	case KeyCopy:
		return m, m.call("copy", m.ctrl.Copy)
	case KeyUndo:
		return m, m.call("undo", m.ctrl.Undo)
	case KeyRedo:
		return m, m.call("redo", m.ctrl.Redo)
	case KeyEdit:
		m.editing = true
		m.editBuffer = []rune(m.preview.Text)
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.editing = false
		m.editBuffer = nil
		return m, nil
	case KeyEnter:
		text := string(m.editBuffer)
		m.editing = false
		m.editBuffer = nil
		return m, m.call("edit", func(ctx context.Context) error { return m.ctrl.Edit(ctx, text) })
	case KeyBack:
		if len(m.editBuffer) > 0 {
			m.editBuffer = m.editBuffer[:len(m.editBuffer)-1]
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		m.editBuffer = append(append([]rune(nil), m.editBuffer...), msg.Runes...)
	}
	return m, nil
}

// call runs a coordinator operation off the update loop; the coordinator
// emits events back into the program while it runs.
func (m Model) call(name string, op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{name: name, err: op(ctx)}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("earworm"))
	b.WriteString("  ")
	b.WriteString(renderState(m.state))
	if m.reason != "" {
		b.WriteString(helpStyle.Render(" (" + string(m.reason) + ")"))
	}
	b.WriteString("\n\n")

	switch {
	case m.editing:
		b.WriteString(editStyle.Render(string(m.editBuffer) + "▏"))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter save • esc discard"))
	case m.preview != nil:
		b.WriteString(previewStyle.Render(m.preview.Text))
		b.WriteString("\n")
		if m.preview.RawText != "" {
			b.WriteString(rawStyle.Render("heard: " + m.preview.RawText))
			b.WriteString("\n")
		}
		if !m.preview.AutoAcceptAt.IsZero() {
			b.WriteString(helpStyle.Render("auto-accept at " + m.preview.AutoAcceptAt.Format("15:04:05")))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render(previewHelp(*m.preview)))
	default:
		if m.lastFinal != "" {
			b.WriteString(finalStyle.Render(m.lastFinal))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("space record/stop • esc cancel • q quit"))
	}

	if m.errorText != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errorText))
	}
	b.WriteString("\n")
	return b.String()
}

func renderState(state domain.SessionState) string {
	style, ok := stateStyles[string(state)]
	if !ok {
		style = stateStyles["idle"]
	}
	return style.Render(strings.ToUpper(string(state)))
}

func previewHelp(view domain.PreviewView) string {
	parts := []string{"enter accept", "esc cancel", "r re-record", "c copy", "e edit"}
	if view.CanUndo {
		parts = append(parts, "ctrl+z undo")
	}
	if view.CanRedo {
		parts = append(parts, "ctrl+y redo")
	}
	return strings.Join(parts, " • ")
}
