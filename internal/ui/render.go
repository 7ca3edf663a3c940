package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/woow-admin/woow/internal/logtail"
	"github.com/woow-admin/woow/internal/toast"
)

const (
	toastWidth       = 44
	progressBarWidth = toastWidth - 4
)

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	body := m.renderContent(m.contentHeight())
	if stack := m.renderToasts(); stack != "" {
		body = overlayRight(body, stack, m.width)
	}
	b.WriteString(lipgloss.NewStyle().Height(m.contentHeight()).MaxHeight(m.contentHeight()).Render(body))
	b.WriteString("\n")

	if m.prompt != promptNone {
		b.WriteString(m.renderPrompt())
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

// renderHeader renders the title line with connectivity and save status.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	var tabs []string
	for _, v := range []View{ViewSettings, ViewPresets, ViewActivity} {
		label := fmt.Sprintf("%d %s", int(v)+1, v)
		if v == m.view {
			tabs = append(tabs, styles.AccentText.Bold(true).Render(label))
		} else {
			tabs = append(tabs, styles.MutedText.Render(label))
		}
	}

	status := []string{m.connectionLabel()}
	if snap.PendingRetries > 0 {
		status = append(status, styles.WarningText.Render(fmt.Sprintf("%d pending", snap.PendingRetries)))
	}
	if snap.Dirty {
		status = append(status, styles.WarningText.Render("unsaved"))
	} else if !snap.LastSaved.IsZero() {
		status = append(status, styles.MutedText.Render("saved "+humanizeDuration(time.Since(snap.LastSaved))+" ago"))
	}
	if m.toastSnap.Queued > 0 {
		status = append(status, styles.MutedText.Render(fmt.Sprintf("+%d toasts", m.toastSnap.Queued)))
	}

	left := styles.Logo.Render("woow") + "  " + strings.Join(tabs, "  ")
	right := strings.Join(status, styles.FaintText.Render(" · "))
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) connectionLabel() string {
	styles := m.theme.Styles()
	if m.snapshot.IsOffline() {
		return styles.DangerText.Render("● offline")
	}
	if m.snapshot.ConsecutiveFailures > 0 {
		return styles.WarningText.Render("● unstable")
	}
	return styles.SuccessText.Render("● online")
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent(height int) string {
	switch m.view {
	case ViewPresets:
		return m.renderPresets(height)
	case ViewActivity:
		return m.logViewport.View()
	default:
		return m.renderSettings(height)
	}
}

// renderToasts renders the on-screen toast stack, oldest on top.
func (m Model) renderToasts() string {
	if len(m.toastSnap.Toasts) == 0 {
		return ""
	}
	styles := m.theme.Styles()
	boxes := make([]string, 0, len(m.toastSnap.Toasts))
	for _, t := range m.toastSnap.Toasts {
		boxes = append(boxes, renderToast(styles, t))
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

func renderToast(styles Styles, t toast.Toast) string {
	kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.KindColor(t.Kind))).Bold(true)

	var b strings.Builder
	head := kindIcon(t.Kind)
	if t.Title != "" {
		head += " " + t.Title
	}
	b.WriteString(kindStyle.Render(head))
	if t.State == toast.StatePaused {
		b.WriteString(styles.FaintText.Render("  paused"))
	}
	if t.Closable {
		b.WriteString(styles.FaintText.Render("  [x]"))
	}
	b.WriteString("\n")
	b.WriteString(t.Message)
	if t.ShowProgress && !t.Persistent() {
		b.WriteString("\n")
		b.WriteString(kindStyle.Render(progressBar(t.Progress(), progressBarWidth)))
	}

	box := styles.ToastBox(t.Kind, toastWidth)
	if t.State == toast.StateRemoving {
		box = box.Faint(true)
	}
	return box.Render(b.String())
}

func kindIcon(kind toast.Kind) string {
	switch kind {
	case toast.KindSuccess:
		return "✓"
	case toast.KindError:
		return "✗"
	case toast.KindWarning:
		return "!"
	case toast.KindLoading:
		return "…"
	default:
		return "i"
	}
}

// progressBar draws fraction of width as filled cells.
func progressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

// overlayRight places stack over the right edge of the first lines of body.
func overlayRight(body, stack string, width int) string {
	stackWidth := lipgloss.Width(stack)
	if width <= stackWidth+10 {
		return body + "\n" + stack
	}
	bodyLines := strings.Split(body, "\n")
	stackLines := strings.Split(stack, "\n")
	for len(bodyLines) < len(stackLines) {
		bodyLines = append(bodyLines, "")
	}
	leftWidth := width - stackWidth - 1
	for i, s := range stackLines {
		left := truncateVisible(bodyLines[i], leftWidth)
		pad := max(leftWidth-lipgloss.Width(left), 0)
		bodyLines[i] = left + strings.Repeat(" ", pad+1) + s
	}
	return strings.Join(bodyLines, "\n")
}

// formatEntry colors one log entry: faint time, level badge, message, attrs.
func formatEntry(styles Styles, e logtail.Entry) string {
	var b strings.Builder
	if e.Time.IsZero() {
		b.WriteString(styles.FaintText.Render("--:--:--"))
	} else {
		b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
	}
	b.WriteString(" ")
	b.WriteString(levelStyle(styles, e.Level).Render(fmt.Sprintf("%-5s", e.Level.String())))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(e.Message))
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(styles.AccentText.Render(a.Key + "="))
		b.WriteString(styles.MutedText.Render(a.Value))
	}
	return b.String()
}

func levelStyle(styles Styles, level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return styles.DangerText
	case level >= slog.LevelWarn:
		return styles.WarningText
	case level >= slog.LevelInfo:
		return styles.SuccessText
	default:
		return styles.InfoText
	}
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	titles := []string{"Navigation", "Settings", "Presets", "Activity", "General"}
	for i, group := range m.keys.FullHelp() {
		b.WriteString(styles.AccentText.Bold(true).Render(titles[i]))
		b.WriteString("\n")
		for _, binding := range group {
			h := binding.Help()
			keyStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color(m.theme.Warning)).
				Width(12)
			b.WriteString(keyStyle.Render(h.Key))
			b.WriteString(styles.Text.Render(h.Desc))
			b.WriteString("\n")
		}
		if i < len(titles)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(48)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
	)
}

func (m Model) openPrompt(kind promptKind, promptKey, value string) Model {
	m.prompt = kind
	m.promptKey = promptKey
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Placeholder = promptPlaceholder(kind)
	m.input.Focus()
	return m
}

func promptPlaceholder(kind promptKind) string {
	switch kind {
	case promptAdd:
		return "key=value"
	case promptImportSettings, promptImportPreset:
		return "path/to/export.json"
	case promptCreatePreset:
		return "preset name"
	default:
		return ""
	}
}

func (m Model) promptLabel() string {
	switch m.prompt {
	case promptEdit:
		return m.promptKey
	case promptAdd:
		return "Add"
	case promptImportSettings:
		return "Import settings"
	case promptCreatePreset:
		return "New preset"
	case promptImportPreset:
		return "Import preset"
	default:
		return ""
	}
}

func (m Model) renderPrompt() string {
	styles := m.theme.Styles()
	return styles.Footer.Width(m.width).Render(styles.AccentText.Render(m.promptLabel()+": ") + m.input.View())
}

// handlePromptKey routes keys to the text input until it is confirmed or
// cancelled.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		kind, promptKey, value := m.prompt, m.promptKey, strings.TrimSpace(m.input.Value())
		m.closePrompt()
		return m, m.submitPrompt(kind, promptKey, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.promptKey = ""
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) submitPrompt(kind promptKind, promptKey, value string) tea.Cmd {
	switch kind {
	case promptEdit:
		m.store.SetSetting(promptKey, value)
		return fetchSnapshotCmd(m.store)
	case promptAdd:
		k, v, ok := parseAssignment(value)
		if !ok {
			m.toasts.Warning("Expected key=value", toast.Config{})
			return nil
		}
		m.store.SetSetting(k, v)
		return fetchSnapshotCmd(m.store)
	case promptImportSettings:
		if m.settings == nil {
			return nil
		}
		return m.importSettings(value)
	case promptCreatePreset:
		if m.presets == nil || value == "" {
			return nil
		}
		return m.createPreset(value)
	case promptImportPreset:
		if m.presets == nil {
			return nil
		}
		return m.importPreset(value)
	}
	return nil
}
