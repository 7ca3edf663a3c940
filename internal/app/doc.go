// Package app provides the orchestration layer for woow.
//
// # Overview
//
// This package wires together configuration, logging, the admin-ajax
// dispatcher, the preset client, the toast engine and the UI. It is the
// composition root where all dependencies are initialized and connected.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()            Read config.toml and .env
//	       ├─────> newLogger()              slog text handler on the log file
//	       ├─────> wpajax.NewDispatcher()   admin-ajax client + retry queue
//	       ├─────> presets.NewClient()      REST client for presets
//	       ├─────> toast.New()              notification engine
//	       ├─────> Poller.Start()           connectivity probes
//	       └─────> ui.Run()                 Start TUI (blocks)
//
//	Background Poller Loop:
//	┌──────────────────────────────────────────────┐
//	│ limiter.Wait()                               │
//	│  ├─> dispatcher.Probe()                      │
//	│  ├─> store.RecordProbe()                     │
//	│  ├─> dispatcher.SetOnline() on a transition  │
//	│  └─> sleep interval (doubled while failing)  │
//	└──────────────────────────────────────────────┘
//
// # Connectivity
//
// Two consecutive failed probes mark the site offline; the dispatcher then
// rejects requests up front and the retry queue holds failed writes. One
// successful probe marks it online again, which drains the queue.
//
// While probes fail, the wait between them doubles up to a minute. The UI can
// ask for an immediate probe through Poller.Trigger; a rate limiter keeps
// those requests at most one per second.
//
// # Logging
//
// The terminal belongs to the UI, so logs go to the configured log file as
// slog text lines. The UI's activity view reads that same file back through
// logtail.
//
// # Shutdown
//
// When the UI exits, Run cancels its context and waits for in-flight retry
// drains and error reports to return before closing the log.
package app
