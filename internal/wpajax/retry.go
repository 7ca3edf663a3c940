package wpajax

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// PendingRequest is a retry queue entry for a failed named operation.
type PendingRequest struct {
	RequestID  string
	Method     string
	Args       []any
	Attempts   int
	EnqueuedAt time.Time

	replaying bool
}

// EnqueueRetry records a network-class failure for requestID. An existing
// entry has its attempt count bumped and is abandoned once the count reaches
// the retry cap; callers are not notified of abandonment.
func (d *Dispatcher) EnqueueRetry(requestID, method string, args []any) {
	if requestID == "" || method == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.queue[requestID]; ok {
		entry.Attempts++
		if entry.Attempts >= d.maxRetries {
			delete(d.queue, requestID)
			d.logger.Warn("retry abandoned", "request_id", requestID, "method", method, "attempts", entry.Attempts)
			return
		}
		d.logger.Debug("retry rescheduled", "request_id", requestID, "method", method, "attempts", entry.Attempts)
		return
	}

	d.queue[requestID] = &PendingRequest{
		RequestID:  requestID,
		Method:     method,
		Args:       append([]any(nil), args...),
		Attempts:   1,
		EnqueuedAt: time.Now(),
	}
	d.logger.Info("request queued for retry", "request_id", requestID, "method", method)
}

// DrainRetryQueue replays every queued entry after attempts × base delay.
// Replays run concurrently. Network failures are re-enqueued and any other
// failure drops the entry; neither is returned.
// Entries already being replayed by an earlier drain are skipped.
func (d *Dispatcher) DrainRetryQueue(ctx context.Context) {
	d.mu.Lock()
	batch := make([]PendingRequest, 0, len(d.queue))
	for _, entry := range d.queue {
		if entry.replaying {
			continue
		}
		entry.replaying = true
		batch = append(batch, *entry)
	}
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var g errgroup.Group
	for _, entry := range batch {
		g.Go(func() error {
			d.replay(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) replay(ctx context.Context, entry PendingRequest) {
	delay := time.Duration(entry.Attempts) * d.baseDelay
	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		d.release(entry.RequestID)
		return
	case <-timer.C:
	}

	op, ok := d.operation(entry.Method)
	if !ok {
		d.logger.Warn("dropping retry for unknown method", "request_id", entry.RequestID, "method", entry.Method)
		d.forget(entry.RequestID)
		return
	}

	_, err := op(ctx, entry.RequestID, entry.Args)
	d.release(entry.RequestID)
	if err != nil {
		if !IsNetworkError(err) {
			d.logger.Warn("dropping retry after non-network failure", "request_id", entry.RequestID, "method", entry.Method, "error", err)
			d.forget(entry.RequestID)
			return
		}
		d.logger.Warn("retry failed", "request_id", entry.RequestID, "method", entry.Method, "error", err)
		d.EnqueueRetry(entry.RequestID, entry.Method, entry.Args)
		return
	}
	d.logger.Info("retry succeeded", "request_id", entry.RequestID, "method", entry.Method)
}

// Pending returns a copy of the retry queue ordered by enqueue time.
func (d *Dispatcher) Pending() []PendingRequest {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]PendingRequest, 0, len(d.queue))
	for _, entry := range d.queue {
		dup := *entry
		dup.Args = append([]any(nil), entry.Args...)
		dup.replaying = false
		out = append(out, dup)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].RequestID < out[j].RequestID
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// PendingCount returns the number of queued retries.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) forget(requestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.queue, requestID)
}

func (d *Dispatcher) release(requestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.queue[requestID]; ok {
		entry.replaying = false
	}
}
