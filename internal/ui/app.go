package ui

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/woow-admin/woow/internal/config"
	"github.com/woow-admin/woow/internal/logtail"
	"github.com/woow-admin/woow/internal/prefs"
	"github.com/woow-admin/woow/internal/presets"
	"github.com/woow-admin/woow/internal/state"
	"github.com/woow-admin/woow/internal/toast"
	"github.com/woow-admin/woow/internal/wpajax"
)

// View represents the current active view.
type View int

const (
	ViewSettings View = iota
	ViewPresets
	ViewActivity
)

func (v View) String() string {
	switch v {
	case ViewPresets:
		return "Presets"
	case ViewActivity:
		return "Activity"
	default:
		return "Settings"
	}
}

func parseView(name string) View {
	for _, v := range []View{ViewSettings, ViewPresets, ViewActivity} {
		if strings.EqualFold(name, v.String()) {
			return v
		}
	}
	return ViewSettings
}

// SettingsClient is the part of the admin-ajax dispatcher the UI drives.
type SettingsClient interface {
	SaveSettings(ctx context.Context, settings url.Values) (wpajax.Response, error)
	ResetSettings(ctx context.Context) (wpajax.Response, error)
	ExportSettings(ctx context.Context) (map[string]any, error)
	ImportSettings(ctx context.Context, data string) (wpajax.Response, error)
	PreviewCSS(ctx context.Context, settings url.Values) (string, error)
	Online() bool
	PendingCount() int
}

var _ SettingsClient = (*wpajax.Dispatcher)(nil)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Settings   SettingsClient
	Presets    presets.Store
	Toasts     *toast.Engine
	Store      *state.Store
	Reconnect  func()
	Config     *config.Config
	Tick       time.Duration
	ThemeName  string
	LastPreset int64
	LastTab    string
	PrefsPath  string
	Logger     *slog.Logger
}

type promptKind int

const (
	promptNone promptKind = iota
	promptEdit
	promptAdd
	promptImportSettings
	promptCreatePreset
	promptImportPreset
)

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx       context.Context
	settings  SettingsClient
	presets   presets.Store
	toasts    *toast.Engine
	store     *state.Store
	reconnect func()
	logPath   string
	prefsPath string
	logger    *slog.Logger
	tick      time.Duration

	// UI state
	keys     keyMap
	help     help.Model
	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot   state.Snapshot
	toastSnap  toast.Snapshot
	toastCh    <-chan struct{}
	online     bool
	lastPreset int64

	// Selection
	settingsRow int
	presetRow   int

	// Prompt
	prompt    promptKind
	promptKey string
	input     textinput.Model

	// Activity log
	logViewport viewport.Model
	logFollow   bool
	logLevel    slog.Level
	logEntries  []logtail.Entry
	logErr      error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	toasts := opts.Toasts
	if toasts == nil {
		toasts = toast.New(toast.Options{Logger: logger})
	}
	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}
	reconnect := opts.Reconnect
	if reconnect == nil {
		reconnect = func() {}
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	var logPath string
	if opts.Config != nil {
		logPath = opts.Config.LogFile
	}

	input := textinput.New()
	input.CharLimit = 4096

	return Model{
		ctx:        ctx,
		settings:   opts.Settings,
		presets:    opts.Presets,
		toasts:     toasts,
		store:      store,
		reconnect:  reconnect,
		logPath:    logPath,
		prefsPath:  prefsPath,
		logger:     logger,
		tick:       tick,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		theme:      GetTheme(opts.ThemeName),
		view:       parseView(opts.LastTab),
		toastCh:    toasts.Subscribe(),
		online:     true,
		lastPreset: opts.LastPreset,
		input:      input,
		logFollow:  true,
		logLevel:   slog.LevelInfo,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.tick),
		fetchSnapshotCmd(m.store),
		waitForToasts(m.ctx, m.toastCh),
	}
	if cmd := m.loadSettings(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if cmd := m.loadPresets(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.view == ViewActivity {
		if cmd := m.loadLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-20, 10)
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.contentHeight())
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = m.contentHeight()
		}
		m.ready = true
		m.renderLogContent()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampSelection()
		return m, nil

	case toastsChangedMsg:
		m.toastSnap = m.toasts.Snapshot()
		return m, waitForToasts(m.ctx, m.toastCh)

	case settingsLoadedMsg:
		if msg.err != nil {
			m.toasts.Error("Could not load settings: "+errorMessage(msg.err), toast.Config{Title: "Settings"})
			return m, nil
		}
		m.store.SetSettings(msg.values)
		return m, fetchSnapshotCmd(m.store)

	case presetsLoadedMsg:
		m.store.SetPresets(msg.list, msg.err)
		if msg.err != nil && !msg.quiet {
			m.toasts.Error("Could not load presets: "+errorMessage(msg.err), toast.Config{Title: "Presets"})
		}
		return m, fetchSnapshotCmd(m.store)

	case opDoneMsg:
		m.settle(msg)
		cmds := []tea.Cmd{fetchSnapshotCmd(m.store)}
		if msg.err == nil && msg.after != nil {
			if cmd := msg.after(&m); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)

	case logsMsg:
		m.logEntries = msg.entries
		m.logErr = msg.err
		m.renderLogContent()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.renderLogContent()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView((m.view + 1) % 3)

	case key.Matches(msg, m.keys.ViewSettings):
		return m.switchView(ViewSettings)

	case key.Matches(msg, m.keys.ViewPresets):
		return m.switchView(ViewPresets)

	case key.Matches(msg, m.keys.ViewActivity):
		return m.switchView(ViewActivity)

	case key.Matches(msg, m.keys.Reconnect):
		m.reconnect()
		m.toasts.Info("Checking connection...", toast.Config{Duration: 2 * time.Second})
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if t, ok := newestToast(m.toastSnap.Toasts, true); ok {
			m.toasts.Remove(t.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.PauseToast):
		if t, ok := newestToast(m.toastSnap.Toasts, false); ok {
			if t.State == toast.StatePaused {
				m.toasts.ResumeTimer(t.ID)
			} else {
				m.toasts.PauseTimer(t.ID)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.ClearToasts):
		m.toasts.Clear()
		return m, nil
	}

	switch m.view {
	case ViewSettings:
		return m.handleSettingsKey(msg)
	case ViewPresets:
		return m.handlePresetsKey(msg)
	case ViewActivity:
		return m.handleActivityKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.view = v
	m.savePrefs()
	if v == ViewActivity {
		return m, m.loadLogs()
	}
	return m, nil
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{fetchSnapshotCmd(m.store), tickCmd(m.tick)}

	// Progress bars move between state changes.
	m.toastSnap = m.toasts.Snapshot()

	if m.settings != nil {
		online := m.settings.Online()
		if online != m.online {
			if online {
				m.toasts.Success("Connection restored", toast.Config{Title: "Online"})
			} else {
				m.toasts.Warning("Connection lost. Changes will be retried when it returns.", toast.Config{Title: "Offline"})
			}
			m.online = online
		}
		m.store.SetPendingRetries(m.settings.PendingCount())
	}

	if m.view == ViewActivity && m.logFollow {
		if cmd := m.loadLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, LastPreset: m.lastPreset, LastTab: strings.ToLower(m.view.String())}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", "error", err)
	}
}

func (m *Model) contentHeight() int {
	// header, command bar, help footer
	return max(m.height-3, 1)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type toastsChangedMsg struct{}

type settingsLoadedMsg struct {
	values url.Values
	err    error
}

type presetsLoadedMsg struct {
	list  []presets.Preset
	err   error
	quiet bool
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func waitForToasts(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ch:
			return toastsChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
