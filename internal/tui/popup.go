// Package tui is the terminal version of the popup: the two selectors, the
// id field, generate/upload/reset actions, a status line and the recent
// activity, rendered with bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clssck/VeevaBro/internal/app"
	"github.com/clssck/VeevaBro/internal/catalog"
	"github.com/clssck/VeevaBro/internal/form"
	"github.com/clssck/VeevaBro/internal/store"
)

type field int

const (
	fieldObject field = iota
	fieldLifecycle
	fieldIDs
	fieldCount
)

const activityLines = 6

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E2591A"))
	labelStyle   = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color("#888888"))
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	sessionOn    = okStyle.Render("●")
	sessionOff   = errStyle.Render("●")
	emptyOption  = "(select a state)"
	helpLine     = "tab/↑↓ move · ←/→ choose · ctrl+g generate · ctrl+u upload & load · ctrl+r reset · esc quit"
)

type restoredMsg struct {
	view   form.View
	status app.Status
	err    error
}

type generatedMsg struct {
	export *app.Export
	err    error
}

type uploadedMsg struct {
	result *app.UploadResult
	err    error
}

type activityMsg struct {
	entries []store.ActivityEntry
}

// Model is the popup state.
type Model struct {
	ctx context.Context
	app *app.App

	view       form.View
	focus      field
	ids        textinput.Model
	spinner    spinner.Model
	busy       bool
	hasSession bool
	status     string
	statusErr  bool
	activity   []store.ActivityEntry
	width      int
}

// New creates the popup model. ctx carries the logger for every app call.
func New(ctx context.Context, a *app.App) *Model {
	ids := textinput.New()
	ids.Placeholder = "id1, id2, id3"
	ids.Prompt = ""
	ids.CharLimit = 4096
	ids.Width = 48
	ids.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{ctx: ctx, app: a, ids: ids, spinner: sp}
}

// Run starts the popup on the terminal and blocks until it is closed.
func Run(ctx context.Context, a *app.App) error {
	_, err := tea.NewProgram(New(ctx, a), tea.WithContext(ctx)).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.restore
}

func (m *Model) restore() tea.Msg {
	view, err := m.app.Form().Restore(m.ctx)
	if err != nil {
		return restoredMsg{view: view, err: err}
	}
	st, err := m.app.Status(m.ctx)
	return restoredMsg{view: view, status: st, err: err}
}

func (m *Model) loadActivity() tea.Msg {
	entries, _ := m.app.Activity(m.ctx, activityLines)
	return activityMsg{entries: entries}
}

func (m *Model) generate() tea.Msg {
	out, err := m.app.GenerateCSV(m.ctx)
	return generatedMsg{export: out, err: err}
}

func (m *Model) upload() tea.Msg {
	res, err := m.app.UploadAndLoad(m.ctx)
	return uploadedMsg{result: res, err: err}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case restoredMsg:
		m.applyView(msg.view, true)
		m.hasSession = msg.status.HasSession
		switch {
		case msg.err != nil:
			m.setStatus("Initialization failed: "+msg.err.Error(), true)
		case msg.status.CatalogError != "":
			m.setStatus("Catalog error: "+msg.status.CatalogError, true)
		default:
			m.setStatus("Popup initialized successfully", false)
		}
		return m, tea.Batch(m.setFocus(m.focus), m.loadActivity)

	case activityMsg:
		m.activity = msg.entries
		return m, nil

	case generatedMsg:
		if msg.err != nil {
			m.setStatus("Error: "+msg.err.Error(), true)
		} else {
			m.setStatus("CSV saved to "+msg.export.Location, false)
			if msg.export.Location == "" {
				m.setStatus("CSV generated: "+msg.export.Document.Filename, false)
			}
		}
		return m, m.loadActivity

	case uploadedMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus("Error: "+msg.err.Error(), true)
		} else {
			m.setStatus(fmt.Sprintf("CSV uploaded and loaded successfully (%d rows)", msg.result.Rows), false)
		}
		return m, m.loadActivity

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "down":
		return m, m.setFocus((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
	case "ctrl+g":
		return m, m.generate
	case "ctrl+u":
		if m.busy {
			m.setStatus("Upload in progress...", false)
			return m, nil
		}
		m.busy = true
		m.setStatus("Uploading...", false)
		return m, tea.Batch(m.spinner.Tick, m.upload)
	case "ctrl+r":
		view, err := m.app.Form().Reset(m.ctx)
		m.applyView(view, true)
		if err != nil {
			m.setStatus("Error: "+err.Error(), true)
		} else {
			m.setStatus("Form reset and saved data cleared", false)
		}
		return m, nil
	case "left", "right":
		if m.focus == fieldObject || m.focus == fieldLifecycle {
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			m.cycle(step)
			return m, nil
		}
	}

	if m.focus != fieldIDs {
		return m, nil
	}
	before := m.ids.Value()
	var cmd tea.Cmd
	m.ids, cmd = m.ids.Update(msg)
	if m.ids.Value() != before {
		if _, err := m.app.Form().SetObjectIDs(m.ctx, m.ids.Value()); err != nil {
			m.setStatus("Error: "+err.Error(), true)
		}
	}
	return m, cmd
}

// cycle moves the focused selector by step, wrapping around.
func (m *Model) cycle(step int) {
	var (
		view form.View
		err  error
	)
	switch m.focus {
	case fieldObject:
		if len(m.view.Objects) == 0 {
			return
		}
		i := indexOfObject(m.view, m.view.ObjectType)
		next := m.view.Objects[wrap(i+step, len(m.view.Objects))].Value
		view, err = m.app.Form().SelectObjectType(m.ctx, next)
	case fieldLifecycle:
		// option 0 is "no state selected"
		options := len(m.view.States) + 1
		i := indexOfState(m.view, m.view.Lifecycle) + 1
		next := wrap(i+step, options)
		value := ""
		if next > 0 {
			value = m.view.States[next-1].Value
		}
		view, err = m.app.Form().SelectLifecycle(m.ctx, value)
	default:
		return
	}
	m.applyView(view, false)
	if err != nil {
		m.setStatus("Error: "+err.Error(), true)
	}
}

func (m *Model) applyView(v form.View, withIDs bool) {
	m.view = v
	if withIDs {
		m.ids.SetValue(v.ObjectIDs)
	}
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	if f == fieldIDs {
		return m.ids.Focus()
	}
	m.ids.Blur()
	return nil
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *Model) View() string {
	var b strings.Builder

	indicator := sessionOff
	if m.hasSession {
		indicator = sessionOn
	}
	b.WriteString(indicator + " " + titleStyle.Render("VeevaBro") + "\n\n")

	objectLabel := "(no object types)"
	if o, ok := objectByValue(m.view, m.view.ObjectType); ok {
		objectLabel = o.Label
	}
	lifecycleLabel := emptyOption
	if i := indexOfState(m.view, m.view.Lifecycle); i >= 0 {
		lifecycleLabel = m.view.States[i].Label
	}

	b.WriteString(m.row(fieldObject, "Object", "‹ "+objectLabel+" ›"))
	b.WriteString(m.row(fieldLifecycle, "Lifecycle", "‹ "+lifecycleLabel+" ›"))
	b.WriteString(m.row(fieldIDs, "Object IDs", m.ids.View()))
	b.WriteString("\n")

	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	if m.statusErr {
		b.WriteString(errStyle.Render(status))
	} else {
		b.WriteString(okStyle.Render(status))
	}
	b.WriteString("\n")

	if len(m.activity) > 0 {
		var lines []string
		for i := len(m.activity) - 1; i >= 0; i-- {
			e := m.activity[i]
			line := e.CreatedAt.Local().Format("15:04:05") + ": " + e.Message
			if e.Level == store.LevelError {
				line = errStyle.Render(line)
			} else {
				line = mutedStyle.Render(line)
			}
			lines = append(lines, line)
		}
		b.WriteString("\n" + strings.Join(lines, "\n") + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render(helpLine))

	style := boxStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String()) + "\n"
}

func (m *Model) row(f field, label, value string) string {
	marker := "  "
	if m.focus == f {
		marker = focusStyle.Render("› ")
		value = focusStyle.Render(value)
	}
	return marker + labelStyle.Render(label) + value + "\n"
}

func objectByValue(v form.View, value string) (catalog.Object, bool) {
	for _, o := range v.Objects {
		if o.Value == value {
			return o, true
		}
	}
	return catalog.Object{}, false
}

func indexOfObject(v form.View, value string) int {
	for i, o := range v.Objects {
		if o.Value == value {
			return i
		}
	}
	return 0
}

func indexOfState(v form.View, value string) int {
	if value == "" {
		return -1
	}
	for i, s := range v.States {
		if s.Value == value {
			return i
		}
	}
	return -1
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
