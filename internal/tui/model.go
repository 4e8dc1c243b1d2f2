package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/slok/qchat/internal/app/chat"
	"github.com/slok/qchat/internal/bridge"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/printer"
)

// spinnerFrames are spread over a full progress rotation.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinnerFrame(step int) string {
	step %= model.ProgressTicks
	return spinnerFrames[step*len(spinnerFrames)/model.ProgressTicks]
}

const rejectedStatus = "A task is already running, wait for it to finish."

// Controller is the interactive controller driven by the TUI.
type Controller interface {
	Submit(text string) (*bridge.Handle, error)
	Handle(msg any) bool
	InFlight() (chat.InFlight, bool)
}

// ModelConfig is the configuration of the TUI model.
type ModelConfig struct {
	Title   string
	NoColor bool
}

type item struct {
	sender model.Sender
	text   string
	failed bool
}

// Model is the Bubble Tea model of the chat, it implements chat.Surface,
// chat.StallNotifier and chat.FailureNotifier. All the methods run on the Bubble Tea event loop.
type Model struct {
	ctrl     Controller
	title    string
	noColor  bool
	styles   styles
	input    textinput.Model
	vp       viewport.Model
	renderer *glamour.TermRenderer

	items   []item
	busy    bool
	step    int
	stalled time.Duration
	status  string

	width, height int
	ready         bool
}

// NewModel returns a new TUI model, it needs a controller bound before running.
func NewModel(cfg ModelConfig) *Model {
	if cfg.Title == "" {
		cfg.Title = "qchat"
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a request (Enter to send, Esc to quit)"
	ti.CharLimit = 0
	ti.Focus()

	m := &Model{
		title:   cfg.Title,
		noColor: cfg.NoColor,
		styles:  newStyles(cfg.NoColor),
		input:   ti,
		vp:      viewport.New(80, 20),
	}
	_ = m.rebuildRenderer(80)

	return m
}

// Bind sets the controller that receives the user input and the queue messages.
func (m *Model) Bind(ctrl Controller) { m.ctrl = ctrl }

func (m *Model) AppendMessage(sender model.Sender, text string) {
	m.items = append(m.items, item{sender: sender, text: text})
	m.refresh()
}

func (m *Model) MarkFailed() {
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].sender == model.SenderAgent {
			m.items[i].failed = true
			break
		}
	}
	m.refresh()
}

func (m *Model) SetBusy(active bool) {
	m.busy = active
	if !active {
		m.step = 0
		m.stalled = 0
	}
}

func (m *Model) Tick(step int) { m.step = step }

func (m *Model) SetStalled(age time.Duration) { m.stalled = age }

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.ctrl != nil && m.ctrl.Handle(msg) {
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.title.Render(m.title)
	return header + "\n" +
		m.styles.border.Render(m.vp.View()) + "\n" +
		m.statusLine() + "\n" +
		m.styles.border.Render(m.input.View())
}

func (m *Model) submit() {
	if m.ctrl == nil {
		return
	}

	_, err := m.ctrl.Submit(m.input.Value())
	switch {
	case errors.Is(err, model.ErrSubmissionRejected):
		// The input is kept so the user can send it later.
		m.status = rejectedStatus
	case err != nil:
		m.status = fmt.Sprintf("Error: %s", err)
	default:
		m.status = ""
		m.input.Reset()
	}
}

func (m *Model) statusLine() string {
	if m.busy {
		line := m.styles.spinner.Render(spinnerFrame(m.step)) + " Working..."
		if inFlight, ok := m.inFlight(); ok {
			line += m.styles.muted.Render(fmt.Sprintf(" (%s)", printer.FormatElapsed(inFlight.Age)))
		}
		if m.stalled > 0 {
			line += " " + m.styles.warning.Render(fmt.Sprintf("no reply after %s", printer.FormatElapsed(m.stalled)))
		}
		if m.status != "" {
			line += "  " + m.styles.status.Render(m.status)
		}
		return line
	}

	return m.styles.status.Render(m.status)
}

func (m *Model) inFlight() (chat.InFlight, bool) {
	if m.ctrl == nil {
		return chat.InFlight{}, false
	}
	return m.ctrl.InFlight()
}

func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	// Title, status and input lines plus both borders.
	vpHeight := m.height - 8
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.vp.Width = m.width - 2
	m.vp.Height = vpHeight
	m.input.Width = m.width - 6
	_ = m.rebuildRenderer(m.vp.Width - 2)
}

func (m *Model) refresh() {
	m.vp.SetContent(m.renderTranscript())
	m.vp.GotoBottom()
}

func (m *Model) renderTranscript() string {
	var b strings.Builder
	for _, it := range m.items {
		switch it.sender {
		case model.SenderUser:
			b.WriteString(m.styles.user.Render(it.sender.DisplayName() + ":"))
			b.WriteString(" " + it.text + "\n")
		default:
			b.WriteString(m.styles.agent.Render(it.sender.DisplayName() + ":"))
			b.WriteString("\n")
			b.WriteString(m.renderAgentText(it))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderAgentText(it item) string {
	text := it.text
	if it.failed {
		return m.styles.failure.Render(text) + "\n"
	}
	if m.renderer == nil {
		return text + "\n"
	}

	rendered, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return rendered
}

func (m *Model) rebuildRenderer(wrap int) error {
	if wrap < 10 {
		wrap = 10
	}

	style := "dark"
	if m.noColor {
		style = "notty"
	}

	// A fixed style avoids terminal background queries.
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return err
	}
	m.renderer = r

	return nil
}
