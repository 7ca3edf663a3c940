package toast

import "time"

// Timer is a cancellable delayed task.
type Timer interface {
	Stop() bool
}

// Scheduler runs delayed tasks. Callbacks may run on any goroutine.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) Now() time.Time { return time.Now() }

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler returns a Scheduler backed by the runtime timers.
func RealScheduler() Scheduler { return realScheduler{} }
