package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/woow-admin/woow/internal/cssvars"
	"github.com/woow-admin/woow/internal/presets"
	"github.com/woow-admin/woow/internal/toast"
)

const previewLines = 12

func (m Model) settingKeys() []string {
	keys := make([]string, 0, len(m.snapshot.Settings))
	for k := range m.snapshot.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Model) clampSelection() {
	if n := len(m.snapshot.Settings); m.settingsRow >= n {
		m.settingsRow = max(n-1, 0)
	}
	if n := len(m.snapshot.Presets); m.presetRow >= n {
		m.presetRow = max(n-1, 0)
	}
}

// handleSettingsKey processes keyboard input for the settings view.
func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.settingKeys()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.settingsRow > 0 {
			m.settingsRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.settingsRow < len(keys)-1 {
			m.settingsRow++
		}
	case key.Matches(msg, m.keys.Top):
		m.settingsRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.settingsRow = max(len(keys)-1, 0)

	case key.Matches(msg, m.keys.Edit):
		if len(keys) == 0 {
			return m, nil
		}
		k := keys[m.settingsRow]
		return m.openPrompt(promptEdit, k, m.snapshot.Settings.Get(k)), nil

	case key.Matches(msg, m.keys.Add):
		return m.openPrompt(promptAdd, "", ""), nil

	case key.Matches(msg, m.keys.Import):
		return m.openPrompt(promptImportSettings, "", ""), nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadSettings()

	case m.settings == nil:
		return m, nil

	case key.Matches(msg, m.keys.Save):
		return m, m.saveSettings()

	case key.Matches(msg, m.keys.Reset):
		client := m.settings
		return m, m.runOp("Resetting settings...", "Settings reset to defaults", true,
			func(ctx context.Context) (func(*Model) tea.Cmd, error) {
				if _, err := client.ResetSettings(ctx); err != nil {
					return nil, err
				}
				return func(m *Model) tea.Cmd { return m.loadSettings() }, nil
			})

	case key.Matches(msg, m.keys.Preview):
		client := m.settings
		values := cssvars.Translate(m.snapshot.Settings)
		return m, m.runOp("Rendering preview...", "Preview ready", false,
			func(ctx context.Context) (func(*Model) tea.Cmd, error) {
				css, err := client.PreviewCSS(ctx, values)
				if err != nil {
					return nil, err
				}
				return func(m *Model) tea.Cmd {
					m.store.SetPreview(css)
					return nil
				}, nil
			})

	case key.Matches(msg, m.keys.Export):
		client := m.settings
		path := exportPath("woow-settings", time.Now())
		return m, m.runOp("Exporting settings...", "Exported to "+path, false,
			func(ctx context.Context) (func(*Model) tea.Cmd, error) {
				doc, err := client.ExportSettings(ctx)
				if err != nil {
					return nil, err
				}
				return nil, writeJSONFile(path, doc)
			})
	}

	return m, nil
}

// saveSettings sends the working settings, with legacy variable names
// translated, and marks them saved on success.
func (m *Model) saveSettings() tea.Cmd {
	client := m.settings
	values := cssvars.Translate(m.snapshot.Settings)
	return m.runOp("Saving settings...", "Settings saved", true,
		func(ctx context.Context) (func(*Model) tea.Cmd, error) {
			if _, err := client.SaveSettings(ctx, values); err != nil {
				return nil, err
			}
			return func(m *Model) tea.Cmd {
				m.store.SetSettings(values)
				m.store.MarkSaved(time.Now())
				return nil
			}, nil
		})
}

func (m *Model) importSettings(path string) tea.Cmd {
	data, err := readImportFile(path)
	if err != nil {
		m.toasts.Error(err.Error(), toast.Config{Title: "Import"})
		return nil
	}
	client := m.settings
	return m.runOp("Importing settings...", "Settings imported", true,
		func(ctx context.Context) (func(*Model) tea.Cmd, error) {
			if _, err := client.ImportSettings(ctx, string(data)); err != nil {
				return nil, err
			}
			return func(m *Model) tea.Cmd { return m.loadSettings() }, nil
		})
}

func (m *Model) createPreset(name string) tea.Cmd {
	store := m.presets
	req := presets.CreateRequest{Name: name, Settings: singleValues(m.snapshot.Settings)}
	return m.runOp("Creating preset...", fmt.Sprintf("Preset %q created", name), false,
		func(ctx context.Context) (func(*Model) tea.Cmd, error) {
			if _, err := store.Create(ctx, req); err != nil {
				return nil, err
			}
			return func(m *Model) tea.Cmd { return m.loadPresetsQuietly(true) }, nil
		})
}

// renderSettings renders the settings table and the preview pane.
func (m Model) renderSettings(height int) string {
	styles := m.theme.Styles()
	keys := m.settingKeys()
	if len(keys) == 0 {
		return styles.MutedText.Render("No settings loaded. Press r to reload, a to add a value.")
	}

	var b strings.Builder
	tableHeight := height
	preview := m.renderPreview()
	if preview != "" {
		tableHeight = max(height-previewLines-2, 3)
	}

	keyWidth := 0
	for _, k := range keys {
		keyWidth = max(keyWidth, len(k))
	}
	keyWidth = min(keyWidth, max(m.width/2, 12))

	start := scrollStart(m.settingsRow, len(keys), tableHeight)
	end := min(start+tableHeight, len(keys))
	for i := start; i < end; i++ {
		k := keys[i]
		line := fmt.Sprintf("%-*s  %s", keyWidth, truncate(k, keyWidth), truncate(m.snapshot.Settings.Get(k), max(m.width-keyWidth-4, 8)))
		if i == m.settingsRow {
			b.WriteString(styles.Selected.Render(line))
		} else if _, legacy := cssvars.Lookup(k); legacy {
			b.WriteString(styles.WarningText.Render(line))
		} else {
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}
	if preview != "" {
		b.WriteString("\n")
		b.WriteString(preview)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderPreview() string {
	css := strings.TrimSpace(m.snapshot.PreviewCSS)
	if css == "" {
		return ""
	}
	styles := m.theme.Styles()
	lines := strings.Split(css, "\n")
	more := ""
	if len(lines) > previewLines {
		more = styles.FaintText.Render(fmt.Sprintf("... %d more lines", len(lines)-previewLines))
		lines = lines[:previewLines]
	}
	var b strings.Builder
	b.WriteString(styles.AccentText.Render("Preview CSS"))
	b.WriteString("\n")
	for _, line := range lines {
		b.WriteString(styles.MutedText.Render(truncate(line, max(m.width-2, 8))))
		b.WriteString("\n")
	}
	b.WriteString(more)
	return strings.TrimRight(b.String(), "\n")
}
