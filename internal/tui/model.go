// Package tui renders a running interview in the terminal and forwards the
// candidate's keys to the orchestrator.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"prepai-go/internal/interview"
	"prepai-go/internal/metrics"
)

// Controller is the part of the orchestrator the UI drives.
type Controller interface {
	Skip() bool
	Previous() bool
	Retry() bool
	StopAnswer() bool
	Mute()
	Unmute()
	SetRate(rate float64)
	Snapshot() interview.Snapshot
}

// SaveFunc stores a completed interview and returns its history ID.
type SaveFunc func(ctx context.Context, snap interview.Snapshot) (string, error)

// SnapshotMsg carries a state change from the orchestrator.
type SnapshotMsg interview.Snapshot

// DoneMsg is sent once the orchestrator's Run returns.
type DoneMsg struct{ Err error }

type savedMsg struct {
	id  string
	err error
}

const rateStep = 0.1

// Options configure a Model.
type Options struct {
	Company string
	Title   string
	// Save is optional; without it results are only shown.
	Save SaveFunc
	// Cancel stops the orchestrator when the candidate quits.
	Cancel context.CancelFunc
}

// Model is the root Bubble Tea model of an interview session.
type Model struct {
	ctrl Controller
	opts Options

	snap   interview.Snapshot
	runErr error
	done   bool

	saving  bool
	savedID string
	saveErr error

	width int
}

func NewModel(ctrl Controller, opts Options) Model {
	return Model{ctrl: ctrl, opts: opts, snap: ctrl.Snapshot(), width: 80}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case SnapshotMsg:
		m.snap = interview.Snapshot(msg)
		if m.snap.State == interview.StateComplete {
			return m, m.saveCmd()
		}

	case DoneMsg:
		m.done = true
		m.runErr = msg.Err
		m.snap = m.ctrl.Snapshot()
		if m.snap.State == interview.StateComplete {
			return m, m.saveCmd()
		}

	case savedMsg:
		m.saving = false
		m.savedID = msg.id
		m.saveErr = msg.err

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey maps keys to controller calls. The calls run as commands so a
// controller that reports back through Program.Send never blocks Update.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl
	switch msg.String() {
	case "ctrl+c", "q":
		if m.opts.Cancel != nil {
			m.opts.Cancel()
		}
		return m, tea.Quit
	case "n", "right":
		return m, call(func() { ctrl.Skip() })
	case "s", "enter":
		return m, call(func() { ctrl.StopAnswer() })
	case "p", "left":
		return m, call(func() { ctrl.Previous() })
	case "r":
		return m, call(func() { ctrl.Retry() })
	case "m":
		if m.snap.Muted {
			return m, call(ctrl.Unmute)
		}
		return m, call(ctrl.Mute)
	case "+", "=":
		rate := m.snap.SpeechRate + rateStep
		return m, call(func() { ctrl.SetRate(rate) })
	case "-":
		rate := m.snap.SpeechRate - rateStep
		return m, call(func() { ctrl.SetRate(rate) })
	}
	return m, nil
}

func call(f func()) tea.Cmd {
	return func() tea.Msg {
		f()
		return nil
	}
}

// saveCmd saves the interview once.
func (m *Model) saveCmd() tea.Cmd {
	if m.opts.Save == nil || m.saving || m.savedID != "" || m.saveErr != nil {
		return nil
	}
	m.saving = true
	save, snap := m.opts.Save, m.snap
	return func() tea.Msg {
		id, err := save(context.Background(), snap)
		return savedMsg{id: id, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.snap.State {
	case interview.StateNotStarted:
		b.WriteString(Muted.Render("Getting ready..."))
	case interview.StateBigCountdown:
		b.WriteString(Overlay.Render(fmt.Sprintf("Interview starting in\n\n%s", Big.Render(fmt.Sprint(m.snap.Countdown)))))
	case interview.StateEvaluating:
		b.WriteString(Pane.Render(Hot.Render("Scoring your interview...")))
	case interview.StateComplete:
		b.WriteString(m.renderResults())
	default:
		b.WriteString(m.renderQuestion())
	}

	if m.snap.LastError != nil && m.snap.State != interview.StateComplete {
		b.WriteString("\n")
		b.WriteString(Error.Render(m.snap.LastError.Error()))
	}
	if m.runErr != nil {
		b.WriteString("\n")
		b.WriteString(Error.Render("Interview stopped: " + m.runErr.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())
	return App.Render(b.String())
}

func (m Model) renderHeader() string {
	title := "Mock interview"
	if m.opts.Title != "" {
		title = m.opts.Title
	}
	if m.opts.Company != "" {
		title += " at " + m.opts.Company
	}

	voice := fmt.Sprintf("voice %.1fx", m.snap.SpeechRate)
	if m.snap.Muted {
		voice = "voice muted"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		Title.Render(title),
		fmt.Sprintf("%s %3d%%  %s", progressBar(m.snap.Progress, 30), m.snap.Progress, Muted.Render(voice)),
	)
}

func (m Model) renderQuestion() string {
	s := m.snap
	var b strings.Builder
	b.WriteString(Muted.Render(fmt.Sprintf("Question %d of %d", s.Index+1, s.Total)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(max(m.width-12, 20)).Render(s.Question.Text))
	b.WriteString("\n\n")

	switch {
	case s.MediaBlocked:
		b.WriteString(Error.Render("Microphone unavailable. Press r to retry or n to skip this question."))
	case s.State == interview.StatePrompting:
		b.WriteString(Muted.Render(fmt.Sprintf("Listen to the question. You will have %ds to answer.", s.Question.TimeLimit())))
	case s.State == interview.StateSmallCountdown:
		b.WriteString(Hot.Render(fmt.Sprintf("Answer starts in %d", s.Countdown)))
	case s.State == interview.StateRecording:
		b.WriteString(Error.Render("● REC") + "  " + formatClock(s.Remaining) + Muted.Render(" left"))
	case s.State == interview.StateTranscribing:
		b.WriteString(Muted.Render("Transcribing your answer..."))
	}
	return Pane.Render(b.String())
}

func (m Model) renderResults() string {
	s := m.snap
	delivery := metrics.CalculateDeliveryMetrics(s.Answers)

	var b strings.Builder
	if s.Result != nil {
		b.WriteString(Title.Render(fmt.Sprintf("Overall score %.1f / 10", s.Result.OverallScore)))
		if s.Result.OverallFeedback != "" {
			b.WriteString("\n")
			b.WriteString(s.Result.OverallFeedback)
		}
	} else {
		b.WriteString(Title.Render("Interview complete"))
		if s.EvaluationErr != nil {
			b.WriteString("\n")
			b.WriteString(Error.Render("Scoring failed: " + s.EvaluationErr.Error()))
		}
	}
	b.WriteString("\n")

	scores := make(map[int]interview.QuestionScore)
	if s.Result != nil {
		for _, q := range s.Result.PerQuestion {
			scores[q.QuestionID] = q
		}
	}
	for i, a := range s.Answers {
		b.WriteString("\n")
		header := fmt.Sprintf("Q%d. %s", i+1, a.QuestionText)
		if q, ok := scores[a.QuestionID]; ok {
			header += Hot.Render(fmt.Sprintf("  %.1f", q.Score))
		}
		b.WriteString(header)
		b.WriteString("\n")
		transcript := a.Transcript
		if transcript == "" {
			transcript = "(no answer)"
		}
		b.WriteString(Muted.Render("  " + transcript))
		if i < len(delivery.Questions) {
			b.WriteString("\n  " + Muted.Render(formatDelivery(delivery.Questions[i].Metrics)))
		}
		if q, ok := scores[a.QuestionID]; ok {
			for _, st := range q.Strengths {
				b.WriteString("\n  " + Good.Render("+ "+st))
			}
			for _, im := range q.Improvements {
				b.WriteString("\n  " + Hot.Render("- "+im))
			}
		}
	}

	b.WriteString("\n\n")
	b.WriteString(Muted.Render("Overall: " + formatDelivery(delivery.Global)))
	switch {
	case m.saving:
		b.WriteString("\n" + Muted.Render("Saving to history..."))
	case m.savedID != "":
		b.WriteString("\n" + Good.Render("Saved as "+m.savedID))
	case m.saveErr != nil:
		b.WriteString("\n" + Error.Render(m.saveErr.Error()))
	}
	return Pane.Render(b.String())
}

func (m Model) renderHelp() string {
	var keys []string
	if m.snap.CanSkip() {
		keys = append(keys, "n skip")
	}
	if m.snap.State == interview.StateRecording {
		keys = append(keys, "s submit answer")
	}
	if m.snap.CanPrevious() {
		keys = append(keys, "p repeat question")
	}
	if m.snap.MediaBlocked {
		keys = append(keys, "r retry microphone")
	}
	keys = append(keys, "m mute", "+/- voice speed", "q quit")
	return Muted.Render(strings.Join(keys, " • "))
}

func formatDelivery(ms map[string]metrics.MetricResult) string {
	parts := []string{fmt.Sprintf("%.0f words", ms[metrics.WordCount].Value)}
	if r := ms[metrics.WordsPerMinute]; r.Calculated {
		parts = append(parts, fmt.Sprintf("%.0f wpm", r.Value))
	}
	if r := ms[metrics.TimeUtilization]; r.Calculated {
		parts = append(parts, fmt.Sprintf("%.0f%% of time", r.Value))
	}
	if r := ms[metrics.FillerWords]; r.Value > 0 {
		parts = append(parts, fmt.Sprintf("%.0f fillers", r.Value))
	}
	return strings.Join(parts, ", ")
}

func formatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return BarFill.Render(strings.Repeat("█", filled)) + BarRest.Render(strings.Repeat("░", width-filled))
}
