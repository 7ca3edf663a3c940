package ui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

var levelCycle = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

func nextLevel(current slog.Level) slog.Level {
	for i, l := range levelCycle {
		if l == current {
			return levelCycle[(i+1)%len(levelCycle)]
		}
	}
	return slog.LevelInfo
}

// handleActivityKey processes keyboard input for the activity log view.
func (m Model) handleActivityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logFollow = !m.logFollow
		if m.logFollow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.CycleLevel):
		m.logLevel = nextLevel(m.logLevel)
		return m, m.loadLogs()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadLogs()
	case key.Matches(msg, m.keys.Top):
		m.logFollow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	// Manual scrolling stops following.
	var cmd tea.Cmd
	before := m.logViewport.YOffset
	m.logViewport, cmd = m.logViewport.Update(msg)
	if m.logViewport.YOffset < before {
		m.logFollow = false
	}
	return m, cmd
}

// renderLogContent formats the log entries into the viewport.
func (m *Model) renderLogContent() {
	if !m.ready {
		return
	}
	styles := m.theme.Styles()
	var b strings.Builder
	switch {
	case m.logErr != nil:
		b.WriteString(styles.DangerText.Render("Cannot read log: " + m.logErr.Error()))
	case m.logPath == "":
		b.WriteString(styles.MutedText.Render("Logging is disabled (no log_file configured)."))
	case len(m.logEntries) == 0:
		b.WriteString(styles.MutedText.Render("No log entries at " + m.logLevel.String() + " or above."))
	}
	for i, e := range m.logEntries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatEntry(styles, e))
	}
	m.logViewport.SetContent(b.String())
	if m.logFollow {
		m.logViewport.GotoBottom()
	}
}
