package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/woow-admin/woow/internal/state"
)

type scriptedProber struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (p *scriptedProber) Probe(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.results) == 0 {
		return nil
	}
	err := p.results[0]
	p.results = p.results[1:]
	return err
}

type recordingLink struct {
	mu          sync.Mutex
	transitions []bool
	pending     int
}

func (l *recordingLink) SetOnline(_ context.Context, online bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, online)
}

func (l *recordingLink) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 5 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 5 * time.Second},
		{"negative failures", -1, 5 * time.Second},
		{"one failure", 1, 5 * time.Second},
		{"two failures", 2, 10 * time.Second},
		{"three failures", 3, 20 * time.Second},
		{"four failures", 4, 40 * time.Second},
		{"five failures capped", 5, 60 * time.Second}, // Would be 80s, capped to 60s
		{"many failures capped", 40, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestProbeOnce_TransitionsAfterTwoFailuresAndOneSuccess(t *testing.T) {
	down := errors.New("fetch failed")
	prober := &scriptedProber{results: []error{down, down, down, nil, nil}}
	link := &recordingLink{pending: 2}
	store := &state.Store{}
	p := NewPoller(prober, link, store, time.Second, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		p.ProbeOnce(ctx)
	}

	link.mu.Lock()
	defer link.mu.Unlock()
	if len(link.transitions) != 2 || link.transitions[0] != false || link.transitions[1] != true {
		t.Fatalf("transitions = %v, want [false true]", link.transitions)
	}
	if got := store.Snapshot().PendingRetries; got != 2 {
		t.Fatalf("PendingRetries = %d, want 2", got)
	}
}

func TestProbeOnce_CancelledContextLeavesStoreUntouched(t *testing.T) {
	prober := &scriptedProber{results: []error{context.Canceled}}
	link := &recordingLink{}
	store := &state.Store{}
	p := NewPoller(prober, link, store, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.ProbeOnce(ctx)

	if snap := store.Snapshot(); snap.ConsecutiveFailures != 0 || !snap.LastProbe.IsZero() {
		t.Fatalf("snapshot = %#v, want untouched", snap)
	}
}

func TestRun_TriggerProbesImmediately(t *testing.T) {
	prober := &scriptedProber{}
	p := NewPoller(prober, &recordingLink{}, &state.Store{}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitForCalls := func(n int) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			prober.mu.Lock()
			calls := prober.calls
			prober.mu.Unlock()
			if calls >= n {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("prober not called %d times", n)
	}

	waitForCalls(1)
	p.Trigger()
	waitForCalls(2)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
