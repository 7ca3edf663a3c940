// Package ui provides the terminal interface for editing a WordPress admin
// theme through the woow plugin.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds the view state and talks to
// three collaborators: a SettingsClient (the admin-ajax dispatcher), a
// presets.Store (the REST preset endpoints) and a toast.Engine that owns
// every notification shown in the corner of the screen. Network calls run
// as tea.Cmds; each one opens a loading toast and settles it into a
// success, warning or error toast when the call returns.
//
// # Package Structure
//
//   - app.go: Model, Options, Update loop and Run
//   - ops.go: operation runner, toast settling and file import/export helpers
//   - settings.go: settings table, save/reset/preview/export actions
//   - presets.go: preset list and its actions
//   - activity.go: log viewport fed by logtail
//   - render.go: header, toast stack, help overlay and the input prompt
//   - theme.go, keys.go, strings.go: styling, key bindings and text helpers
//
// # Views
//
//   - Settings: working copy of the plugin settings, editable in place
//   - Presets: saved presets with apply, create, import, export and delete
//   - Activity: the client's own log file with level filtering and follow
//
// # Offline Behavior
//
// Saves, resets and imports that fail for lack of a network are queued by
// the dispatcher. The UI reports them with a warning toast, shows the
// pending count in the header and announces when the connection returns.
//
// # Key Bindings
//
//   - 1/2/3 or Tab: switch views
//   - j/k, g/G: move the selection
//   - enter or e: edit the selected setting, apply the selected preset
//   - s: save, R: reset, v: preview CSS, E/I: export/import
//   - x: dismiss newest toast, p: pause or resume it, X: clear all toasts
//   - ctrl+r: check the connection now
//   - T: cycle theme, ?: help, q: quit
package ui
