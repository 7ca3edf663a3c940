package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/woow-admin/woow/internal/presets"
	"github.com/woow-admin/woow/internal/toast"
)

func (m Model) selectedPreset() (presets.Preset, bool) {
	if m.presetRow < 0 || m.presetRow >= len(m.snapshot.Presets) {
		return presets.Preset{}, false
	}
	return m.snapshot.Presets[m.presetRow], true
}

// handlePresetsKey processes keyboard input for the presets view.
func (m Model) handlePresetsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Presets)

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.presetRow > 0 {
			m.presetRow--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.presetRow < count-1 {
			m.presetRow++
		}
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.presetRow = 0
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.presetRow = max(count-1, 0)
		return m, nil
	}

	if m.presets == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadPresets()

	case key.Matches(msg, m.keys.Create):
		return m.openPrompt(promptCreatePreset, "", ""), nil

	case key.Matches(msg, m.keys.Import):
		return m.openPrompt(promptImportPreset, "", ""), nil
	}

	p, ok := m.selectedPreset()
	if !ok {
		return m, nil
	}
	store := m.presets

	switch {
	case key.Matches(msg, m.keys.Apply):
		return m, m.runOp(fmt.Sprintf("Applying %q...", p.Name), fmt.Sprintf("Preset %q applied", p.Name), false,
			func(ctx context.Context) (func(*Model) tea.Cmd, error) {
				if err := store.Apply(ctx, p.ID); err != nil {
					return nil, err
				}
				return func(m *Model) tea.Cmd {
					m.lastPreset = p.ID
					m.savePrefs()
					return m.loadSettings()
				}, nil
			})

	case key.Matches(msg, m.keys.Delete):
		return m, m.runOp(fmt.Sprintf("Deleting %q...", p.Name), fmt.Sprintf("Preset %q deleted", p.Name), false,
			func(ctx context.Context) (func(*Model) tea.Cmd, error) {
				if err := store.Delete(ctx, p.ID); err != nil {
					return nil, err
				}
				return func(m *Model) tea.Cmd {
					if m.lastPreset == p.ID {
						m.lastPreset = 0
						m.savePrefs()
					}
					return m.loadPresetsQuietly(true)
				}, nil
			})

	case key.Matches(msg, m.keys.Export):
		path := exportPath(fmt.Sprintf("woow-preset-%d", p.ID), time.Now())
		return m, m.runOp(fmt.Sprintf("Exporting %q...", p.Name), "Exported to "+path, false,
			func(ctx context.Context) (func(*Model) tea.Cmd, error) {
				doc, err := store.Export(ctx, p.ID)
				if err != nil {
					return nil, err
				}
				return nil, writeJSONFile(path, doc)
			})
	}

	return m, nil
}

func (m *Model) importPreset(path string) tea.Cmd {
	data, err := readImportFile(path)
	if err != nil {
		m.toasts.Error(err.Error(), toast.Config{Title: "Import"})
		return nil
	}
	store := m.presets
	return m.runOp("Importing preset...", "Preset imported", false,
		func(ctx context.Context) (func(*Model) tea.Cmd, error) {
			if _, err := store.Import(ctx, json.RawMessage(data)); err != nil {
				return nil, err
			}
			return func(m *Model) tea.Cmd { return m.loadPresetsQuietly(true) }, nil
		})
}

// renderPresets renders the preset list with a detail line for the selection.
func (m Model) renderPresets(height int) string {
	styles := m.theme.Styles()
	snap := m.snapshot

	var b strings.Builder
	if snap.PresetError != nil {
		b.WriteString(styles.DangerText.Render("Presets unavailable: " + errorMessage(snap.PresetError)))
		b.WriteString("\n")
	}
	if !snap.HasPresets {
		b.WriteString(styles.MutedText.Render("Loading presets..."))
		return b.String()
	}
	if len(snap.Presets) == 0 {
		b.WriteString(styles.MutedText.Render("No presets yet. Press c to save the current settings as one."))
		return b.String()
	}

	listHeight := max(height-3, 3)
	start := scrollStart(m.presetRow, len(snap.Presets), listHeight)
	end := min(start+listHeight, len(snap.Presets))
	for i := start; i < end; i++ {
		p := snap.Presets[i]
		marker := "  "
		if p.ID == m.lastPreset {
			marker = "● "
		}
		line := fmt.Sprintf("%s%-4d %s", marker, p.ID, truncate(p.Name, max(m.width-12, 8)))
		if i == m.presetRow {
			b.WriteString(styles.Selected.Render(line))
		} else {
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}

	if p, ok := m.selectedPreset(); ok {
		b.WriteString("\n")
		detail := fmt.Sprintf("%d settings", len(p.Settings))
		if created := p.ParsedCreatedAt(); !created.IsZero() {
			detail += " · created " + created.Format("2006-01-02 15:04")
		}
		if p.Description != "" {
			detail += " · " + p.Description
		}
		b.WriteString(styles.MutedText.Render(truncate(detail, max(m.width-2, 8))))
	}
	return strings.TrimRight(b.String(), "\n")
}
