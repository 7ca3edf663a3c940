package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/woow-admin/woow/internal/logtail"
	"github.com/woow-admin/woow/internal/presets"
	"github.com/woow-admin/woow/internal/toast"
	"github.com/woow-admin/woow/internal/wpajax"
)

const logTailLines = 400

// opDoneMsg reports the end of a server operation started by runOp.
type opDoneMsg struct {
	toastID   string
	success   string
	retryable bool
	err       error
	// after runs in Update when the operation succeeded.
	after func(m *Model) tea.Cmd
}

type opFunc func(ctx context.Context) (func(m *Model) tea.Cmd, error)

// runOp shows a loading toast and runs fn off the UI goroutine. The toast
// is settled into success, warning or error when fn returns.
func (m *Model) runOp(loading, success string, retryable bool, fn opFunc) tea.Cmd {
	id := m.toasts.Loading(loading, toast.Config{})
	ctx := m.ctx
	return func() tea.Msg {
		after, err := fn(ctx)
		return opDoneMsg{toastID: id, success: success, retryable: retryable, err: err, after: after}
	}
}

// settle converts the loading toast for msg into its final form.
func (m *Model) settle(msg opDoneMsg) {
	kind, text := toast.KindSuccess, msg.success
	switch {
	case msg.err == nil:
	case msg.retryable && wpajax.IsNetworkError(msg.err):
		kind, text = toast.KindWarning, "Offline: queued, will retry when the connection returns"
	default:
		kind, text = toast.KindError, errorMessage(msg.err)
	}
	if msg.err != nil {
		m.logger.Warn("operation failed", "toast", msg.toastID, "error", msg.err)
	}
	duration := m.toasts.DefaultDuration(kind)
	m.toasts.Update(msg.toastID, toast.Patch{
		Kind:         &kind,
		Message:      &text,
		Duration:     &duration,
		Closable:     toast.Bool(true),
		ShowProgress: toast.Bool(true),
	})
}

// errorMessage renders err for a toast.
func errorMessage(err error) string {
	var opErr *wpajax.OperationFailedError
	var transportErr *wpajax.TransportError
	var apiErr *presets.APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &opErr):
		return opErr.Message
	case errors.Is(err, wpajax.ErrMissingCredential):
		return "No security nonce configured (set nonce in config.toml or WOOW_NONCE)"
	case errors.Is(err, wpajax.ErrNetworkUnavailable):
		return "You are offline"
	case errors.Is(err, wpajax.ErrRequestTimeout):
		return "The server took too long to answer"
	case errors.As(err, &transportErr):
		return fmt.Sprintf("Server returned status %d", transportErr.Status)
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Server returned status %d", apiErr.Status)
	default:
		return err.Error()
	}
}

func (m *Model) loadSettings() tea.Cmd {
	if m.settings == nil {
		return nil
	}
	client, ctx := m.settings, m.ctx
	return func() tea.Msg {
		doc, err := client.ExportSettings(ctx)
		if err != nil {
			return settingsLoadedMsg{err: err}
		}
		return settingsLoadedMsg{values: settingsFromExport(doc)}
	}
}

func (m *Model) loadPresets() tea.Cmd {
	return m.loadPresetsQuietly(false)
}

func (m *Model) loadPresetsQuietly(quiet bool) tea.Cmd {
	if m.presets == nil {
		return nil
	}
	store, ctx := m.presets, m.ctx
	return func() tea.Msg {
		list, err := store.List(ctx)
		return presetsLoadedMsg{list: list, err: err, quiet: quiet}
	}
}

func (m *Model) loadLogs() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	path, level := m.logPath, m.logLevel
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines, level)
		return logsMsg{entries: entries, err: err}
	}
}

// settingsFromExport extracts the settings map from an export document. The
// plugin wraps settings in a "settings" member alongside export metadata;
// older versions return the bare map.
func settingsFromExport(doc map[string]any) url.Values {
	if inner, ok := doc["settings"].(map[string]any); ok {
		return presets.Flatten(inner)
	}
	return presets.Flatten(doc)
}

// singleValues reduces form values to the first value per key.
func singleValues(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for key := range v {
		out[key] = v.Get(key)
	}
	return out
}

// newestToast returns the most recent on-screen toast that is not leaving.
// With closableOnly set, toasts the user may not dismiss are skipped.
func newestToast(toasts []toast.Toast, closableOnly bool) (toast.Toast, bool) {
	for i := len(toasts) - 1; i >= 0; i-- {
		t := toasts[i]
		if t.State == toast.StateRemoving {
			continue
		}
		if closableOnly && !t.Closable {
			continue
		}
		return t, true
	}
	return toast.Toast{}, false
}

// exportPath names an export file in the working directory.
func exportPath(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.json", prefix, now.Format("20060102-150405"))
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func readImportFile(path string) ([]byte, error) {
	path = expandHome(strings.TrimSpace(path))
	if path == "" {
		return nil, fmt.Errorf("no file given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", filepath.Base(path))
	}
	return data, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
