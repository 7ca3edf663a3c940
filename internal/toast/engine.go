package toast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxVisible = 5
	defaultDuration   = 5 * time.Second
	defaultErrorAfter = 7 * time.Second
	defaultExitDelay  = 300 * time.Millisecond
)

// Options configure an Engine.
type Options struct {
	MaxVisible      int
	DefaultDuration time.Duration
	ErrorDuration   time.Duration
	ExitDelay       time.Duration // how long a removing toast stays on screen
	Scheduler       Scheduler
	Logger          *slog.Logger
}

// Engine owns all toasts: the on-screen stack and the FIFO wait queue.
// At most MaxVisible toasts occupy the stack, including ones still running
// their exit window.
type Engine struct {
	sched           Scheduler
	logger          *slog.Logger
	maxVisible      int
	defaultDuration time.Duration
	errorDuration   time.Duration
	exitDelay       time.Duration

	mu     sync.Mutex
	active []*record
	queue  []*record
	byID   map[string]*record
	subs   []chan struct{}
}

type record struct {
	Toast
	startedAt time.Time
	timer     Timer
	gen       uint64
}

// New builds an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		sched:           opts.Scheduler,
		logger:          opts.Logger,
		maxVisible:      opts.MaxVisible,
		defaultDuration: opts.DefaultDuration,
		errorDuration:   opts.ErrorDuration,
		exitDelay:       opts.ExitDelay,
		byID:            make(map[string]*record),
	}
	if e.sched == nil {
		e.sched = RealScheduler()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.maxVisible <= 0 {
		e.maxVisible = defaultMaxVisible
	}
	if e.defaultDuration <= 0 {
		e.defaultDuration = defaultDuration
	}
	if e.errorDuration <= 0 {
		e.errorDuration = defaultErrorAfter
	}
	if e.exitDelay <= 0 {
		e.exitDelay = defaultExitDelay
	}
	return e
}

// Show creates a toast and returns its id. When the stack is full the toast
// waits in the queue until a slot frees.
func (e *Engine) Show(cfg Config) string {
	rec := &record{Toast: e.resolve(cfg)}
	rec.ID = "toast-" + uuid.NewString()
	rec.CreatedAt = e.sched.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.byID[rec.ID] = rec
	if len(e.active) >= e.maxVisible {
		rec.State = StateQueued
		e.queue = append(e.queue, rec)
		e.logger.Debug("toast queued", "id", rec.ID, "kind", rec.Kind, "queued", len(e.queue))
	} else {
		e.display(rec)
	}
	e.notify()
	return rec.ID
}

// Success shows a success toast.
func (e *Engine) Success(message string, cfg Config) string {
	return e.show(KindSuccess, message, cfg)
}

// Error shows an error toast.
func (e *Engine) Error(message string, cfg Config) string {
	return e.show(KindError, message, cfg)
}

// Warning shows a warning toast.
func (e *Engine) Warning(message string, cfg Config) string {
	return e.show(KindWarning, message, cfg)
}

// Info shows an info toast.
func (e *Engine) Info(message string, cfg Config) string {
	return e.show(KindInfo, message, cfg)
}

// Loading shows a persistent, non-closable toast. Remove it explicitly.
func (e *Engine) Loading(message string, cfg Config) string {
	return e.show(KindLoading, message, cfg)
}

// DefaultDuration returns the lifetime a toast of kind gets when its config
// leaves Duration unset. Loading toasts never expire.
func (e *Engine) DefaultDuration(kind Kind) time.Duration {
	switch kind {
	case KindLoading:
		return 0
	case KindError:
		return e.errorDuration
	default:
		return e.defaultDuration
	}
}

func (e *Engine) show(kind Kind, message string, cfg Config) string {
	cfg.Kind = kind
	cfg.Message = message
	return e.Show(cfg)
}

// Remove starts the exit window for id; the toast is deleted when it ends and
// the next queued toast takes its slot. Unknown or removing ids are ignored.
func (e *Engine) Remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[id]
	if !ok || rec.State == StateRemoving {
		return
	}
	if rec.State == StateQueued {
		e.queue = without(e.queue, rec)
		delete(e.byID, id)
		e.notify()
		return
	}
	e.beginRemove(rec)
	e.notify()
}

// PauseTimer freezes the countdown of a visible, expiring toast.
func (e *Engine) PauseTimer(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[id]
	if !ok || rec.State != StateVisible || rec.Duration <= 0 {
		return
	}
	e.cancelTimer(rec)
	rec.Elapsed += e.sched.Now().Sub(rec.startedAt)
	rec.State = StatePaused
	e.notify()
}

// ResumeTimer restarts a paused countdown for whatever lifetime was left.
func (e *Engine) ResumeTimer(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[id]
	if !ok || rec.State != StatePaused {
		return
	}
	rec.State = StateVisible
	rec.startedAt = e.sched.Now()
	remaining := rec.Duration - rec.Elapsed
	if remaining <= 0 {
		e.beginRemove(rec)
	} else {
		e.schedule(rec, remaining, e.expire)
	}
	e.notify()
}

// Clear drops every toast at once, queued ones included.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rec := range e.active {
		e.cancelTimer(rec)
	}
	n := len(e.active) + len(e.queue)
	e.active = nil
	e.queue = nil
	e.byID = make(map[string]*record)
	if n > 0 {
		e.logger.Debug("toasts cleared", "count", n)
	}
	e.notify()
}

// Update merges patch into the toast. A changed duration restarts the
// countdown from zero.
func (e *Engine) Update(id string, patch Patch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[id]
	if !ok || rec.State == StateRemoving {
		return
	}
	oldDuration := rec.Duration
	if patch.Kind != nil {
		rec.Kind = *patch.Kind
	}
	if patch.Title != nil {
		rec.Title = *patch.Title
	}
	if patch.Message != nil {
		rec.Message = *patch.Message
	}
	if patch.Duration != nil {
		rec.Duration = max(*patch.Duration, 0)
	}
	if patch.Closable != nil {
		rec.Closable = *patch.Closable
	}
	if patch.ShowProgress != nil {
		rec.ShowProgress = *patch.ShowProgress
	}
	if rec.Kind == KindLoading {
		rec.Duration = 0
		rec.Closable = false
		rec.ShowProgress = false
	}

	if rec.Duration != oldDuration && rec.State != StateQueued {
		e.cancelTimer(rec)
		rec.Elapsed = 0
		rec.startedAt = e.sched.Now()
		if rec.State == StatePaused && rec.Duration <= 0 {
			rec.State = StateVisible
		}
		if rec.State == StateVisible && rec.Duration > 0 {
			e.schedule(rec, rec.Duration, e.expire)
		}
	}
	e.notify()
}

// Get returns a copy of the toast with id.
func (e *Engine) Get(id string) (Toast, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[id]
	if !ok {
		return Toast{}, false
	}
	return e.view(rec, e.sched.Now()), true
}

// Snapshot is a point-in-time copy of the engine state.
type Snapshot struct {
	Toasts []Toast // on-screen stack, oldest first
	Queued int
}

// Snapshot copies the on-screen toasts and the queue length.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.sched.Now()
	out := Snapshot{Queued: len(e.queue)}
	if len(e.active) > 0 {
		out.Toasts = make([]Toast, 0, len(e.active))
	}
	for _, rec := range e.active {
		out.Toasts = append(out.Toasts, e.view(rec, now))
	}
	return out
}

// Subscribe returns a channel that receives a value after state changes.
// Signals are coalesced; readers should re-read Snapshot.
func (e *Engine) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) resolve(cfg Config) Toast {
	t := Toast{
		Kind:         cfg.Kind,
		Title:        cfg.Title,
		Message:      cfg.Message,
		Closable:     true,
		ShowProgress: true,
	}
	if t.Kind == "" {
		t.Kind = KindInfo
	}
	switch {
	case cfg.Persistent:
		t.Duration = 0
	case cfg.Duration > 0:
		t.Duration = cfg.Duration
	case t.Kind == KindError:
		t.Duration = e.errorDuration
	default:
		t.Duration = e.defaultDuration
	}
	if cfg.Closable != nil {
		t.Closable = *cfg.Closable
	}
	if cfg.ShowProgress != nil {
		t.ShowProgress = *cfg.ShowProgress
	}
	if t.Kind == KindLoading {
		t.Duration = 0
		t.Closable = false
		t.ShowProgress = false
	}
	return t
}

// display moves rec onto the stack. Caller holds e.mu.
func (e *Engine) display(rec *record) {
	rec.State = StateVisible
	rec.startedAt = e.sched.Now()
	rec.Elapsed = 0
	e.active = append(e.active, rec)
	if rec.Duration > 0 {
		e.schedule(rec, rec.Duration, e.expire)
	}
}

// beginRemove starts the exit window. Caller holds e.mu.
func (e *Engine) beginRemove(rec *record) {
	e.cancelTimer(rec)
	rec.State = StateRemoving
	e.schedule(rec, e.exitDelay, e.finalize)
}

func (e *Engine) schedule(rec *record, d time.Duration, fn func(id string, gen uint64)) {
	rec.gen++
	id, gen := rec.ID, rec.gen
	rec.timer = e.sched.AfterFunc(d, func() { fn(id, gen) })
}

func (e *Engine) cancelTimer(rec *record) {
	rec.gen++
	if rec.timer != nil {
		rec.timer.Stop()
		rec.timer = nil
	}
}

func (e *Engine) expire(id string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[id]
	if !ok || rec.gen != gen || rec.State != StateVisible {
		return
	}
	e.beginRemove(rec)
	e.notify()
}

func (e *Engine) finalize(id string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[id]
	if !ok || rec.gen != gen || rec.State != StateRemoving {
		return
	}
	rec.timer = nil
	delete(e.byID, id)
	e.active = without(e.active, rec)
	e.promote()
	e.notify()
}

// promote fills free slots from the queue in arrival order. Caller holds e.mu.
func (e *Engine) promote() {
	for len(e.active) < e.maxVisible && len(e.queue) > 0 {
		next := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.display(next)
	}
}

func (e *Engine) view(rec *record, now time.Time) Toast {
	t := rec.Toast
	if t.Duration > 0 {
		switch rec.State {
		case StateVisible:
			t.Remaining = t.Duration - t.Elapsed - now.Sub(rec.startedAt)
		case StatePaused:
			t.Remaining = t.Duration - t.Elapsed
		case StateQueued:
			t.Remaining = t.Duration
		}
		if t.Remaining < 0 {
			t.Remaining = 0
		}
	}
	return t
}

// notify signals subscribers without blocking. Caller holds e.mu.
func (e *Engine) notify() {
	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func without(list []*record, rec *record) []*record {
	for i, r := range list {
		if r == rec {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
