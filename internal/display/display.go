// Package display provides the terminal chat UI using Bubble Tea.
//
// The [UI] type keeps a timer status bar and an input prompt at the
// bottom of the terminal. Replies and notifications are printed above
// the rendered area via Program.Println, so concurrent writes from the
// timer poller never garble the prompt.
package display

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
)

// Compile-time interface check.
var _ domain.Notifier = (*UI)(nil)

// firedVisibleFor is how long a finished timer stays in the bar.
const firedVisibleFor = 2 * time.Minute

const promptText = "chef> "

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	timerRunStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	timerDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0")).
			Bold(true)

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5")).
				Bold(true)

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may call the
// print helpers, Notify, and read from [UI.InputChan] at any time after
// [UI.Ready] is closed.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	timers  domain.TimerStore
	userID  string
	done    atomic.Bool
}

// NewUI creates the display. The timer bar shows userID's timers from
// store. Call Run to start.
func NewUI(store domain.TimerStore, userID string) *UI {
	return &UI{
		timers:  store,
		userID:  userID,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Falls back to fmt.Println
// when the program is not running.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// PrintChat prints a single assistant line.
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintHint prints a dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an alert line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintReply prints a multi-line reply, styling recipe sections, list
// items and step lines differently from plain chat.
func (u *UI) PrintReply(text string) {
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(styleLine(line).Render("  " + line))
	}
	u.Println(b.String())
}

// PrintUserInput echoes the user's line into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("you") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// Notify prints a notification line.
func (u *UI) Notify(_ context.Context, message string) error {
	u.PrintHint(message)
	return nil
}

// NotifyUrgent prints an alert line and rings the terminal bell.
func (u *UI) NotifyUrgent(_ context.Context, message string) error {
	u.PrintUrgent("\a" + message)
	return nil
}

// Ready is closed once the Bubble Tea event loop is running.
func (u *UI) Ready() <-chan struct{} { return u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// Plain-text prompt: styled prompts add ANSI bytes that break the
	// textinput width math.
	ti.Prompt = promptText
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	m := newModel(u.timers, u.userID, ti, u.inputCh, u.readyCh, u.PrintUserInput)

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

type model struct {
	store   domain.TimerStore
	userID  string
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	now     func() time.Time
	timers  []timerInfo
	width   int
}

type timerInfo struct {
	label     string
	remaining time.Duration
	fired     bool
}

type tickMsg time.Time

func newModel(store domain.TimerStore, userID string, ti textinput.Model, inputCh chan<- string, readyCh chan struct{}, echo func(string)) model {
	return model{
		store:   store,
		userID:  userID,
		input:   ti,
		inputCh: inputCh,
		readyCh: readyCh,
		echoFn:  echo,
		now:     time.Now,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.inputCh <- v
			// Echo from a Cmd so Println runs outside Update.
			echoFn := m.echoFn
			return m, func() tea.Msg {
				echoFn(v)
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(promptText) {
			m.input.Width = msg.Width - len(promptText)
		}
		return m, nil

	case tickMsg:
		m.refreshTimers()
		title := "Virtual Chef"
		if len(m.timers) > 0 {
			title += ": " + m.titleStr()
		}
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(title))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) refreshTimers() {
	if m.store == nil {
		return
	}
	ts, err := m.store.Timers(context.Background(), m.userID)
	if err != nil {
		return
	}
	m.timers = barTimers(ts, m.now())
}

// barTimers picks the timers worth showing: everything still pending and
// anything that went off within firedVisibleFor. Input order is kept.
func barTimers(ts []domain.Timer, now time.Time) []timerInfo {
	var out []timerInfo
	for _, t := range ts {
		remaining := t.WakeAt.Sub(now)
		switch {
		case !t.Fired:
			out = append(out, timerInfo{label: t.Label, remaining: remaining})
		case -remaining <= firedVisibleFor:
			out = append(out, timerInfo{label: t.Label, fired: true})
		}
	}
	return out
}

func (m model) titleStr() string {
	var p []string
	for _, t := range m.timers {
		if t.fired {
			p = append(p, t.label+": done")
		} else {
			p = append(p, t.label+": "+fmtDuration(t.remaining))
		}
	}
	return strings.Join(p, " | ")
}

func (m model) View() string {
	var b strings.Builder

	if len(m.timers) > 0 {
		b.WriteString(m.renderBar())
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	var parts []string
	for _, t := range m.timers {
		if t.fired {
			parts = append(parts, timerDoneStyle.Render(t.label+": done"))
		} else {
			parts = append(parts,
				labelStyle.Render(t.label+": ")+
					timerRunStyle.Render(fmtDuration(t.remaining)))
		}
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}

type lineKind int

const (
	lineChat lineKind = iota
	lineHeading
	lineStep
	lineItem
	lineNote
)

var lineStyles = map[lineKind]lipgloss.Style{
	lineChat:    chatStyle,
	lineHeading: headingStyle,
	lineStep:    stepStyle,
	lineItem:    primaryStyle,
	lineNote:    secondaryStyle,
}

func styleLine(line string) lipgloss.Style {
	return lineStyles[classify(line)]
}

// classify guesses what a reply line is from its shape.
func classify(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "Ingredients:" || trimmed == "Method:" || trimmed == "Tips:":
		return lineHeading
	case strings.HasPrefix(trimmed, "Step ") || strings.HasPrefix(trimmed, "Starting step-by-step"):
		return lineStep
	case strings.HasPrefix(trimmed, "- ") || startsWithNumber(trimmed):
		return lineItem
	case strings.HasPrefix(trimmed, "Cultural note:") || strings.HasPrefix(trimmed, "Timer "):
		return lineNote
	}
	return lineChat
}

func startsWithNumber(s string) bool {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i < len(s) && s[i] == '.'
}

func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
