package state

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/woow-admin/woow/internal/presets"
)

// offlineThreshold is the number of consecutive failed probes after which the
// site is treated as unreachable.
const offlineThreshold = 2

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Settings   url.Values // working copy being edited
	Dirty      bool       // Settings differ from what was last saved
	LastSaved  time.Time
	PreviewCSS string

	Presets     []presets.Preset
	HasPresets  bool
	PresetError error

	PendingRetries int

	LastProbe           time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed probes
}

// IsOffline returns true when the site has been unreachable for multiple probes.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= offlineThreshold
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// RecordProbe folds a connectivity probe result into the snapshot. It reports
// whether the offline flag changed.
func (s *Store) RecordProbe(err error) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasOffline := s.snapshot.IsOffline()
	s.snapshot.LastProbe = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
	} else {
		s.snapshot.LastError = nil
		s.snapshot.ConsecutiveFailures = 0
	}
	return wasOffline != s.snapshot.IsOffline()
}

// SetSettings replaces the working settings, e.g. after a load or reset.
// The result counts as saved.
func (s *Store) SetSettings(settings url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Settings = cloneValues(settings)
	s.snapshot.Dirty = false
}

// SetSetting edits one key of the working settings.
func (s *Store) SetSetting(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Settings == nil {
		s.snapshot.Settings = url.Values{}
	}
	if s.snapshot.Settings.Get(key) == value {
		return
	}
	s.snapshot.Settings.Set(key, value)
	s.snapshot.Dirty = true
}

// MarkSaved records a successful save at t.
func (s *Store) MarkSaved(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Dirty = false
	s.snapshot.LastSaved = t
}

// SetPreview stores the most recent preview stylesheet.
func (s *Store) SetPreview(css string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.PreviewCSS = css
}

// SetPresets replaces the preset list. When err is non-nil the previous list
// is kept but the error is recorded for visibility.
func (s *Store) SetPresets(list []presets.Preset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.PresetError = err
		return
	}
	s.snapshot.Presets = clonePresets(list)
	s.snapshot.HasPresets = true
	s.snapshot.PresetError = nil
}

// SetPendingRetries records the retry queue length.
func (s *Store) SetPendingRetries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.PendingRetries = max(n, 0)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Settings = cloneValues(s.snapshot.Settings)
	snap.Presets = clonePresets(s.snapshot.Presets)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	if s.snapshot.PresetError != nil {
		snap.PresetError = fmt.Errorf("%w", s.snapshot.PresetError)
	}
	return snap
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	dup := make(url.Values, len(v))
	for key, values := range v {
		dup[key] = append([]string(nil), values...)
	}
	return dup
}

func clonePresets(items []presets.Preset) []presets.Preset {
	if len(items) == 0 {
		return nil
	}
	dup := make([]presets.Preset, len(items))
	copy(dup, items)
	return dup
}
