package toast

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects a toast's styling and default lifetime.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
	KindLoading Kind = "loading"
)

// ParseKind normalizes s into a Kind, defaulting to KindInfo.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSuccess:
		return KindSuccess
	case KindError:
		return KindError
	case KindWarning:
		return KindWarning
	case KindLoading:
		return KindLoading
	default:
		return KindInfo
	}
}

// State is a toast's position in its lifecycle.
type State int

const (
	StateQueued State = iota
	StateVisible
	StatePaused
	StateRemoving
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateVisible:
		return "visible"
	case StatePaused:
		return "paused"
	case StateRemoving:
		return "removing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config describes a toast to show. Zero fields take the engine defaults:
// Duration 0 means the kind default unless Persistent is set.
type Config struct {
	Kind         Kind
	Title        string
	Message      string
	Duration     time.Duration
	Persistent   bool
	Closable     *bool
	ShowProgress *bool
}

// Patch carries the fields Update merges into an existing toast.
// A Duration of zero makes the toast persistent.
type Patch struct {
	Kind         *Kind
	Title        *string
	Message      *string
	Duration     *time.Duration
	Closable     *bool
	ShowProgress *bool
}

// Bool returns a pointer to v, for Config and Patch fields.
func Bool(v bool) *bool { return &v }

// Toast is a read-only copy of a toast record.
type Toast struct {
	ID           string
	Kind         Kind
	Title        string
	Message      string
	Duration     time.Duration // zero: persists until removed
	Closable     bool
	ShowProgress bool
	State        State
	Elapsed      time.Duration // countdown consumed before the current run
	Remaining    time.Duration // filled in by Snapshot and Get
	CreatedAt    time.Time
}

// Persistent reports whether the toast never expires on its own.
func (t Toast) Persistent() bool {
	return t.Duration <= 0
}

// Progress returns the fraction of lifetime left, in [0,1].
func (t Toast) Progress() float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(t.Remaining) / float64(t.Duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
