// Package state provides thread-safe state shared between woow's background
// workers and the UI.
//
// # Overview
//
// The connectivity poller, the retry queue and the settings editor all write
// into one Store; the UI reads a Snapshot on every redraw.
//
//	Producers:                     Consumer (UI):
//	┌──────────────────────┐       ┌──────────────────┐
//	│ poller.RecordProbe() │       │                  │
//	│ ui.SetSetting()      │──────→│ store.Snapshot() │
//	│ ui.SetPresets()      │(mutex)│      ↓           │
//	│ SetPendingRetries()  │       │  render view     │
//	└──────────────────────┘       └──────────────────┘
//
// # Connectivity
//
// RecordProbe counts consecutive failed probes. Two in a row mark the site
// offline (Snapshot.IsOffline); a single success resets the counter. The
// return value tells the caller whether the offline flag flipped, so the
// dispatcher is only told about real transitions.
//
// # Settings
//
// Settings is the working copy the editor mutates. SetSettings replaces it
// wholesale and clears Dirty; SetSetting marks it Dirty when a value actually
// changes; MarkSaved clears Dirty after the server accepted a save.
//
// # Defensive Copying
//
// Snapshot clones the settings map, the preset slice and error values so the
// UI can hold a snapshot while producers keep writing.
//
// The zero Store is ready to use.
package state
