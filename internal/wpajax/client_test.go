package wpajax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestDispatcher(t *testing.T, rt http.RoundTripper, mutate func(*Options)) *Dispatcher {
	t.Helper()
	opts := Options{
		Endpoint:       "https://example.test",
		Token:          StaticToken("abc123"),
		RetryBaseDelay: 5 * time.Millisecond,
		HTTPClient:     &http.Client{Transport: rt},
	}
	if mutate != nil {
		mutate(&opts)
	}
	d, err := NewDispatcher(opts)
	if err != nil {
		t.Fatalf("NewDispatcher returned error: %v", err)
	}
	return d
}

func TestParseEndpoint_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseEndpoint("")
	if err != nil {
		t.Fatalf("parseEndpoint returned error: %v", err)
	}
	if u.String() != "http://127.0.0.1/wp-admin/admin-ajax.php" {
		t.Fatalf("endpoint = %q, want default admin-ajax URL", u.String())
	}

	u, err = parseEndpoint("https://site.test/?x=1#frag")
	if err != nil {
		t.Fatalf("parseEndpoint returned error: %v", err)
	}
	if u.String() != "https://site.test/wp-admin/admin-ajax.php" {
		t.Fatalf("endpoint = %q, want site admin-ajax URL", u.String())
	}

	u, err = parseEndpoint("site.test/custom/ajax.php")
	if err != nil {
		t.Fatalf("parseEndpoint returned error: %v", err)
	}
	if u.Path != "/custom/ajax.php" || u.Scheme != "http" {
		t.Fatalf("endpoint = %q, want explicit path kept", u.String())
	}
}

func TestDispatch_SendsActionTokenAndPayload(t *testing.T) {
	t.Parallel()

	var gotForm url.Values
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wp-admin/admin-ajax.php" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		gotForm = r.PostForm
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"message":"saved"}}`))
	}))
	t.Cleanup(server.Close)

	d, err := NewDispatcher(Options{
		Endpoint:   server.URL,
		Token:      FirstToken(StaticToken(""), StaticToken("tok-1")),
		TokenField: "mas_nonce",
	})
	if err != nil {
		t.Fatalf("NewDispatcher returned error: %v", err)
	}

	resp, err := d.Dispatch(context.Background(), ActionSaveSettings, url.Values{"menu_background": {"#fff"}}, "req0")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if !resp.Success {
		t.Fatalf("Success = false, want true")
	}
	if gotForm.Get("action") != string(ActionSaveSettings) ||
		gotForm.Get("mas_nonce") != "tok-1" ||
		gotForm.Get("menu_background") != "#fff" {
		t.Fatalf("form = %v, want action, token and payload", gotForm)
	}
	if !strings.HasPrefix(gotHeader.Get("Content-Type"), "application/x-www-form-urlencoded") {
		t.Fatalf("Content-Type = %q, want form encoding", gotHeader.Get("Content-Type"))
	}
	if !strings.HasPrefix(gotHeader.Get("User-Agent"), "woow/") {
		t.Fatalf("User-Agent = %q, want woow/*", gotHeader.Get("User-Agent"))
	}
}

func TestDispatch_OfflineNeverReachesTransport(t *testing.T) {
	var calls atomic.Int32
	d := newTestDispatcher(t, roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(200, `{"success":true}`), nil
	}), nil)
	d.SetOnline(context.Background(), false)

	for _, action := range []Action{ActionSaveSettings, ActionResetSettings, ActionPreviewCSS} {
		_, err := d.Dispatch(context.Background(), action, nil, "")
		if !errors.Is(err, ErrNetworkUnavailable) {
			t.Fatalf("Dispatch(%s) error = %v, want ErrNetworkUnavailable", action, err)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("transport calls = %d, want 0 while offline", calls.Load())
	}
}

func TestDispatch_RejectsUnknownActionAndMissingToken(t *testing.T) {
	var calls atomic.Int32
	rt := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(200, `{"success":true}`), nil
	})

	d := newTestDispatcher(t, rt, nil)
	if _, err := d.Dispatch(context.Background(), Action("drop_tables"), nil, ""); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Dispatch error = %v, want ErrUnknownAction", err)
	}

	d = newTestDispatcher(t, rt, func(o *Options) { o.Token = FirstToken(StaticToken(" "), nil) })
	if _, err := d.Dispatch(context.Background(), ActionSaveSettings, nil, ""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Dispatch error = %v, want ErrMissingCredential", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("transport calls = %d, want 0", calls.Load())
	}
}

func TestSaveSettings_OperationFailedIsNotQueued(t *testing.T) {
	d := newTestDispatcher(t, roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":false,"data":{"message":"bad value","code":"invalid_color"}}`), nil
	}), nil)

	_, err := d.SaveSettings(context.Background(), url.Values{"color": {"#fff"}})
	var opErr *OperationFailedError
	if !errors.As(err, &opErr) {
		t.Fatalf("SaveSettings error = %v, want OperationFailedError", err)
	}
	if opErr.Message != "bad value" || opErr.Code != "invalid_color" {
		t.Fatalf("OperationFailedError = %#v, want message bad value", opErr)
	}
	if IsNetworkError(err) {
		t.Fatalf("IsNetworkError(%v) = true, want false", err)
	}
	if n := d.PendingCount(); n != 0 {
		t.Fatalf("PendingCount = %d, want 0", n)
	}
}

func TestDispatch_TransportErrorCarriesStatus(t *testing.T) {
	d := newTestDispatcher(t, roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `-1`), nil
	}), nil)

	_, err := d.SaveSettings(context.Background(), nil)
	var tErr *TransportError
	if !errors.As(err, &tErr) || tErr.Status != http.StatusForbidden {
		t.Fatalf("error = %v, want TransportError 403", err)
	}
	if d.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0 for transport status errors", d.PendingCount())
	}
}

func TestDispatch_TimeoutAbortsRequest(t *testing.T) {
	t.Parallel()

	aborted := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a client disconnect once the body is consumed.
		_, _ = io.ReadAll(r.Body)
		select {
		case <-r.Context().Done():
			close(aborted)
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	d, err := NewDispatcher(Options{
		Endpoint: server.URL,
		Token:    StaticToken("t"),
		Timeout:  50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewDispatcher returned error: %v", err)
	}

	_, err = d.Dispatch(context.Background(), ActionSaveSettings, nil, "")
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("Dispatch error = %v, want ErrRequestTimeout", err)
	}
	if !IsNetworkError(err) {
		t.Fatalf("timeout should be retry-eligible")
	}
	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatalf("server request was not aborted")
	}
}

func TestDispatch_DecodeError(t *testing.T) {
	d := newTestDispatcher(t, roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{not-json`), nil
	}), nil)
	_, err := d.Dispatch(context.Background(), ActionExportSettings, nil, "")
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("error = %v, want decode response error", err)
	}
}

func TestReport_ForwardsLogicalFailures(t *testing.T) {
	var mu sync.Mutex
	var actions []string
	d := newTestDispatcher(t, roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		_ = r.ParseForm()
		mu.Lock()
		actions = append(actions, r.PostForm.Get("action"))
		mu.Unlock()
		if r.PostForm.Get("action") == string(ActionLogError) {
			return jsonResponse(500, `0`), nil
		}
		return jsonResponse(200, `{"success":false,"data":"nope"}`), nil
	}), func(o *Options) { o.ReportErrors = true })

	if _, err := d.ResetSettings(context.Background()); err == nil {
		t.Fatalf("ResetSettings returned nil error, want failure")
	}
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []string{string(ActionResetSettings), string(ActionLogError)}
	if fmt.Sprint(actions) != fmt.Sprint(want) {
		t.Fatalf("actions = %v, want %v (report must not recurse)", actions, want)
	}
}

func TestFailureDetail(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantMsg  string
		wantCode string
	}{
		{"empty", ``, "operation failed", ""},
		{"string", `"Security check failed"`, "Security check failed", ""},
		{"object", `{"message":"bad value","code":"e1"}`, "bad value", "e1"},
		{"numeric code", `{"message":"bad","code":403}`, "bad", "403"},
		{"object without message", `{"code":null}`, "operation failed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, code := failureDetail(json.RawMessage(tt.data))
			if msg != tt.wantMsg || code != tt.wantCode {
				t.Fatalf("failureDetail(%s) = %q,%q want %q,%q", tt.data, msg, code, tt.wantMsg, tt.wantCode)
			}
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"offline", ErrNetworkUnavailable, true},
		{"timeout", fmt.Errorf("%w: save", ErrRequestTimeout), true},
		{"fetch", fmt.Errorf("%w: dial tcp", ErrFetchFailed), true},
		{"signature", errors.New("TypeError: Failed to fetch"), true},
		{"network word", errors.New("NetworkError when attempting"), true},
		{"credential", ErrMissingCredential, false},
		{"unknown action", ErrUnknownAction, false},
		{"transport", &TransportError{Status: 504}, false},
		{"operation", &OperationFailedError{Message: "network settings invalid"}, false},
		{"validation", errors.New("invalid color"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.want {
				t.Fatalf("IsNetworkError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFirstToken(t *testing.T) {
	src := FirstToken(nil, StaticToken(""), StaticToken("  second "), StaticToken("third"))
	if got := src(); got != "second" {
		t.Fatalf("FirstToken = %q, want second", got)
	}
	if got := FirstToken()(); got != "" {
		t.Fatalf("FirstToken() = %q, want empty", got)
	}
}

func TestProbe_IgnoresOnlineFlagAndTreats4xxAsReachable(t *testing.T) {
	status := http.StatusBadRequest
	var methods []string
	d := newTestDispatcher(t, roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		if status == 0 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return jsonResponse(status, "0"), nil
	}), nil)
	d.online.Store(false)

	if err := d.Probe(context.Background()); err != nil {
		t.Fatalf("Probe returned error for 400: %v", err)
	}

	status = http.StatusBadGateway
	var te *TransportError
	if err := d.Probe(context.Background()); !errors.As(err, &te) || te.Status != http.StatusBadGateway {
		t.Fatalf("Probe error = %v, want 502 TransportError", err)
	}

	status = 0
	if err := d.Probe(context.Background()); !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Probe error = %v, want ErrFetchFailed", err)
	}
	if len(methods) != 3 || methods[0] != http.MethodGet {
		t.Fatalf("methods = %v, want three GETs", methods)
	}
}
