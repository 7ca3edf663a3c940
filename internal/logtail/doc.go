// Package logtail reads the tail of woow's own log file for the activity view.
//
// # Overview
//
// woow logs with slog's text handler to a file, because the terminal belongs
// to the UI. The activity view shows the last few hundred lines of that file,
// parsed so they can be filtered by level and colored per field.
//
// # Reading Log Files
//
// Read uses a ring buffer of size maxLines, so memory stays O(maxLines)
// regardless of file size and the file is scanned once:
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// A non-positive maxLines returns the whole file. A missing file yields no
// lines and no error; the log may simply not exist yet.
//
// # Parsing
//
// Parse understands the slog text format:
//
//	time=2026-03-01T10:15:00.123Z level=WARN msg="retry queued" request_id=save_17
//
// time, level and msg land in their own fields; every other pair is kept in
// Attrs in source order. Lines that are not key=value formatted (a stray
// panic trace, for instance) come back as an Info entry whose Message is the
// raw text.
//
// Tail combines the two and drops entries below a minimum level.
//
// # Error Handling
//
// Read returns nil, nil for non-existent files. Other errors (permission
// denied, I/O errors, lines longer than 1MB) are returned wrapped. Parse
// never fails.
package logtail
