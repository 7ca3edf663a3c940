// Package wpajax provides the request dispatcher for the plugin's admin-ajax
// actions, including the retry queue used to recover from connectivity loss.
//
// # Overview
//
// Every settings mutation in the plugin goes through a single WordPress
// endpoint, admin-ajax.php, selecting the server-side handler with an
// "action" form field and authenticating with a nonce. The Dispatcher wraps
// that endpoint with:
//
//   - a fixed set of known actions (unknown names are rejected locally)
//   - an online/offline flag that short-circuits requests while offline
//   - a per-request deadline (30 seconds by default) that aborts the transport
//   - decoding of the {"success": bool, "data": ...} envelope
//   - a bounded retry queue for connectivity failures
//
// # Files
//
//   - client.go: Dispatcher construction, Dispatch, envelope decoding
//   - errors.go: error taxonomy and network-error classification
//   - retry.go: retry queue, EnqueueRetry, DrainRetryQueue
//   - operations.go: named operations (SaveSettings, ResetSettings, ...)
//
// # Error Taxonomy
//
//	ErrNetworkUnavailable   dispatcher is marked offline
//	ErrMissingCredential    no token from any TokenSource
//	ErrRequestTimeout       deadline exceeded, transport aborted
//	ErrFetchFailed          connection refused, reset, DNS failure
//	*TransportError         non-2xx HTTP status
//	*OperationFailedError   success=false, server message attached
//
// Only ErrNetworkUnavailable, ErrRequestTimeout, ErrFetchFailed and errors
// whose message carries a network signature are retry-eligible
// (see IsNetworkError).
//
// # Retry Queue
//
// Named operations generate a request id ("save_<unix-nanos>") and, when a
// write fails with a retry-eligible error, record a PendingRequest keyed by
// that id. The entry stores the method name and arguments so it can be
// replayed later:
//
//	issued ──► succeeded          (entry removed)
//	       ├─► failed-network     (EnqueueRetry: insert or attempts++)
//	       └─► failed-other       (returned to caller, never queued)
//
// The offline→online transition (SetOnline) drains the queue. Each entry is
// replayed after attempts × base delay (1 second by default); all replays of
// one drain run concurrently and each failure is fed back to EnqueueRetry.
// Entries whose attempt count reaches the cap (3) are dropped silently: the
// caller already received the original error.
//
// # Usage Example
//
//	d, err := wpajax.NewDispatcher(wpajax.Options{
//		Endpoint: "https://example.com",
//		Token:    wpajax.FirstToken(cfgToken, envToken),
//		Logger:   logger,
//	})
//	if err != nil {
//		return err
//	}
//	if _, err := d.SaveSettings(ctx, url.Values{"menu_background": {"#23282d"}}); err != nil {
//		// err is already queued for retry if it was a network failure
//	}
//
// # Thread Safety
//
// Dispatcher is safe for concurrent use. The retry queue is guarded by a
// mutex and only mutated through Dispatcher methods.
package wpajax
