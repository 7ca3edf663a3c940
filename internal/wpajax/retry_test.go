package wpajax

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// flakyTransport fails every request with a connection error while down is set.
type flakyTransport struct {
	down  atomic.Bool
	calls atomic.Int32
	saves atomic.Int32
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, errors.New("dial tcp 10.0.0.1:443: connect: connection refused")
	}
	_ = r.ParseForm()
	if r.PostForm.Get("action") == string(ActionSaveSettings) {
		f.saves.Add(1)
	}
	return jsonResponse(200, `{"success":true,"data":{}}`), nil
}

func TestSaveSettings_NetworkFailureQueuesAndReplaysOnReconnect(t *testing.T) {
	ft := &flakyTransport{}
	ft.down.Store(true)
	d := newTestDispatcher(t, ft, func(o *Options) { o.RetryBaseDelay = 20 * time.Millisecond })

	_, err := d.SaveSettings(context.Background(), url.Values{"color": {"#fff"}})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("SaveSettings error = %v, want ErrFetchFailed", err)
	}

	pending := d.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	entry := pending[0]
	if entry.Method != MethodSaveSettings || entry.Attempts != 1 {
		t.Fatalf("entry = %#v, want saveSettings attempts=1", entry)
	}
	if got, ok := entry.Args[0].(url.Values); !ok || got.Get("color") != "#fff" {
		t.Fatalf("entry args = %#v, want stored settings", entry.Args)
	}

	ft.down.Store(false)
	d.SetOnline(context.Background(), false)
	start := time.Now()
	d.SetOnline(context.Background(), true)
	d.Wait()

	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("replay ran after %v, want >= base delay", elapsed)
	}
	if ft.saves.Load() != 1 {
		t.Fatalf("replayed saves = %d, want 1", ft.saves.Load())
	}
	if d.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0 after successful replay", d.PendingCount())
	}
}

func TestEnqueueRetry_DropsAtCap(t *testing.T) {
	d := newTestDispatcher(t, &flakyTransport{}, nil)

	for i := 1; i <= 4; i++ {
		d.EnqueueRetry("req2", MethodSaveSettings, []any{url.Values{}})
		for _, p := range d.Pending() {
			if p.Attempts > defaultMaxRetries {
				t.Fatalf("attempts = %d exceeds cap after call %d", p.Attempts, i)
			}
		}
	}
	if n := d.PendingCount(); n != 1 {
		// insert, bump to 2, bump to 3 (dropped), then a fresh insert.
		t.Fatalf("PendingCount = %d, want 1 fresh entry", n)
	}

	d = newTestDispatcher(t, &flakyTransport{}, nil)
	d.EnqueueRetry("req3", MethodResetSettings, nil)
	d.EnqueueRetry("req3", MethodResetSettings, nil)
	if p := d.Pending(); len(p) != 1 || p[0].Attempts != 2 {
		t.Fatalf("pending = %#v, want attempts=2", p)
	}
	d.EnqueueRetry("req3", MethodResetSettings, nil)
	if d.PendingCount() != 0 {
		t.Fatalf("entry should be abandoned once attempts reach the cap")
	}
}

func TestDrainRetryQueue_FailedReplayIsBoundedByCap(t *testing.T) {
	ft := &flakyTransport{}
	ft.down.Store(true)
	d := newTestDispatcher(t, ft, nil)

	if _, err := d.SaveSettings(context.Background(), url.Values{"a": {"1"}}); err == nil {
		t.Fatalf("SaveSettings returned nil error, want network failure")
	}
	if d.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", d.PendingCount())
	}

	d.DrainRetryQueue(context.Background())
	if p := d.Pending(); len(p) != 1 || p[0].Attempts != 2 {
		t.Fatalf("pending after first failed replay = %#v, want attempts=2", p)
	}

	d.DrainRetryQueue(context.Background())
	if d.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0 once the cap is reached", d.PendingCount())
	}
	if ft.calls.Load() != 3 {
		t.Fatalf("transport calls = %d, want 3 (original + 2 replays)", ft.calls.Load())
	}
}

func TestDrainRetryQueue_LogicalFailureDropsEntry(t *testing.T) {
	var down atomic.Bool
	var calls atomic.Int32
	down.Store(true)
	rt := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		if down.Load() {
			return nil, errors.New("dial tcp 10.0.0.1:443: connect: connection refused")
		}
		return jsonResponse(200, `{"success":false,"data":{"message":"bad value"}}`), nil
	})
	d := newTestDispatcher(t, rt, nil)

	if _, err := d.SaveSettings(context.Background(), url.Values{"color": {"#fff"}}); err == nil {
		t.Fatalf("SaveSettings returned nil error, want network failure")
	}
	if d.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", d.PendingCount())
	}

	down.Store(false)
	d.DrainRetryQueue(context.Background())
	if n := d.PendingCount(); n != 0 {
		t.Fatalf("PendingCount = %d, want 0 after a server-side rejection", n)
	}

	d.DrainRetryQueue(context.Background())
	if got := calls.Load(); got != 2 {
		t.Fatalf("transport calls = %d, want 2 (original + one replay)", got)
	}
}

func TestDrainRetryQueue_ReplaysConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	rt := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return jsonResponse(200, `{"success":true}`), nil
	})
	d := newTestDispatcher(t, rt, nil)
	d.EnqueueRetry("a", MethodResetSettings, nil)
	d.EnqueueRetry("b", MethodResetSettings, nil)
	d.EnqueueRetry("c", MethodImportSettings, []any{`{"x":1}`})

	done := make(chan struct{})
	go func() {
		d.DrainRetryQueue(context.Background())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for peak.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("peak in-flight replays = %d, want 3", peak.Load())
		case <-time.After(time.Millisecond):
		}
	}
	close(release)
	<-done
	if d.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0", d.PendingCount())
	}
}

func TestDrainRetryQueue_EntryNotReplayedTwiceConcurrently(t *testing.T) {
	ft := &flakyTransport{}
	d := newTestDispatcher(t, ft, func(o *Options) { o.RetryBaseDelay = 30 * time.Millisecond })
	d.EnqueueRetry("save_1", MethodSaveSettings, []any{url.Values{"k": {"v"}}})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.DrainRetryQueue(context.Background())
		}()
	}
	wg.Wait()

	if ft.saves.Load() != 1 {
		t.Fatalf("saves = %d, want exactly one replay", ft.saves.Load())
	}
}

func TestDrainRetryQueue_CancelledContextKeepsEntry(t *testing.T) {
	d := newTestDispatcher(t, &flakyTransport{}, func(o *Options) { o.RetryBaseDelay = time.Hour })
	d.EnqueueRetry("save_1", MethodSaveSettings, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.DrainRetryQueue(ctx)

	if d.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want entry kept after cancellation", d.PendingCount())
	}
	// The entry must be replayable again by a later drain.
	d.mu.Lock()
	replaying := d.queue["save_1"].replaying
	d.mu.Unlock()
	if replaying {
		t.Fatalf("entry still marked as replaying after cancelled drain")
	}
}

func TestOfflineFailureIsQueued(t *testing.T) {
	d := newTestDispatcher(t, &flakyTransport{}, nil)
	d.SetOnline(context.Background(), false)

	if _, err := d.ImportSettings(context.Background(), `{"a":1}`); !errors.Is(err, ErrNetworkUnavailable) {
		t.Fatalf("ImportSettings error = %v, want ErrNetworkUnavailable", err)
	}
	if p := d.Pending(); len(p) != 1 || p[0].Method != MethodImportSettings {
		t.Fatalf("pending = %#v, want one importSettings entry", p)
	}

	// Reads are not queued.
	if _, err := d.PreviewCSS(context.Background(), nil); !errors.Is(err, ErrNetworkUnavailable) {
		t.Fatalf("PreviewCSS error = %v, want ErrNetworkUnavailable", err)
	}
	if d.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", d.PendingCount())
	}
}
