// Package toast implements the notification engine behind the status toasts.
//
// An Engine keeps a capped stack of on-screen toasts (five by default) and a
// FIFO queue for the overflow. Each expiring toast runs a countdown on the
// engine's Scheduler; PauseTimer freezes it and ResumeTimer restarts it for
// the lifetime that was left. Removal first moves a toast to StateRemoving
// for a short exit window and only then frees its slot for the next queued
// toast.
//
//	queued ──► visible ◄──► paused
//	              │
//	              ▼
//	          removing ──► (deleted, next queued toast promoted)
//
// Loading toasts never expire and cannot be closed by the user; callers
// remove them or Update them into a regular toast once the work finishes.
//
// All operations tolerate unknown ids. Renderers read Snapshot and use
// Subscribe to learn when to redraw.
package toast
