package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	Reconnect  key.Binding

	// View switching
	ViewSettings key.Binding
	ViewPresets  key.Binding
	ViewActivity key.Binding

	// Toasts
	Dismiss     key.Binding
	PauseToast  key.Binding
	ClearToasts key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Settings actions
	Edit    key.Binding
	Add     key.Binding
	Save    key.Binding
	Reset   key.Binding
	Preview key.Binding
	Export  key.Binding
	Import  key.Binding

	// Preset actions
	Apply   key.Binding
	Create  key.Binding
	Delete  key.Binding
	Refresh key.Binding

	// Activity actions
	ToggleFollow key.Binding
	CycleLevel   key.Binding

	// Prompt
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Probe connection now"),
		),

		ViewSettings: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Settings"),
		),
		ViewPresets: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Presets"),
		),
		ViewActivity: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Activity log"),
		),

		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Dismiss newest toast"),
		),
		PauseToast: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Pause/resume newest toast"),
		),
		ClearToasts: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Clear all toasts"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Edit: key.NewBinding(
			key.WithKeys("enter", "e"),
			key.WithHelp("enter", "Edit value"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add key=value"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Save settings"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reset to defaults"),
		),
		Preview: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Preview CSS"),
		),
		Export: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "Export to file"),
		),
		Import: key.NewBinding(
			key.WithKeys("I"),
			key.WithHelp("I", "Import from file"),
		),

		Apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Apply preset"),
		),
		Create: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Create from settings"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete preset"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Cycle minimum level"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Save, k.Dismiss, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewSettings, k.ViewPresets, k.ViewActivity, k.Up, k.Down, k.Top, k.Bottom},
		{k.Edit, k.Add, k.Save, k.Reset, k.Preview, k.Export, k.Import},
		{k.Apply, k.Create, k.Delete, k.Refresh},
		{k.ToggleFollow, k.CycleLevel},
		{k.Dismiss, k.PauseToast, k.ClearToasts, k.Reconnect, k.CycleTheme, k.Help, k.Quit},
	}
}
