package wpajax

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetworkUnavailable is returned while the dispatcher is marked offline.
	ErrNetworkUnavailable = errors.New("network unavailable: client is offline")
	// ErrMissingCredential is returned when no security token can be found.
	ErrMissingCredential = errors.New("missing security token")
	// ErrRequestTimeout is returned when a request exceeds the dispatcher deadline.
	ErrRequestTimeout = errors.New("request timeout")
	// ErrFetchFailed wraps transport-level failures (refused, reset, DNS).
	ErrFetchFailed = errors.New("fetch failed")
	// ErrUnknownAction is returned for actions outside the known set.
	ErrUnknownAction = errors.New("unknown action")
)

// TransportError reports a non-success HTTP status from the endpoint.
type TransportError struct {
	Action Action
	Status int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ajax %s returned status %d", e.Action, e.Status)
}

// OperationFailedError reports a response whose success flag was false.
type OperationFailedError struct {
	Action  Action
	Message string
	Code    string
}

func (e *OperationFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// networkSignatures are lower-cased fragments that mark an error message as a
// connectivity problem rather than a logical failure.
var networkSignatures = []string{
	"failed to fetch",
	"fetch failed",
	"network",
	"timeout",
	"offline",
}

// IsNetworkError reports whether err is eligible for automatic retry.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *OperationFailedError
	if errors.As(err, &opErr) {
		return false
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return false
	}
	if errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrUnknownAction) {
		return false
	}
	if errors.Is(err, ErrNetworkUnavailable) || errors.Is(err, ErrRequestTimeout) || errors.Is(err, ErrFetchFailed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range networkSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
