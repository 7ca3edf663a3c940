package wpajax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Action names a server-side operation reachable through admin-ajax.
type Action string

const (
	ActionSaveSettings   Action = "mas_v2_save_settings"
	ActionResetSettings  Action = "mas_v2_reset_settings"
	ActionExportSettings Action = "mas_v2_export_settings"
	ActionImportSettings Action = "mas_v2_import_settings"
	ActionPreviewCSS     Action = "mas_v2_get_preview_css"
	ActionLogError       Action = "mas_v2_log_error"
)

var knownActions = map[Action]struct{}{
	ActionSaveSettings:   {},
	ActionResetSettings:  {},
	ActionExportSettings: {},
	ActionImportSettings: {},
	ActionPreviewCSS:     {},
	ActionLogError:       {},
}

// Known reports whether a is one of the plugin's registered actions.
func (a Action) Known() bool {
	_, ok := knownActions[a]
	return ok
}

// TokenSource yields the current security token, or "" when none is available.
type TokenSource func() string

// FirstToken returns a TokenSource that picks the first non-empty value.
func FirstToken(sources ...TokenSource) TokenSource {
	return func() string {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if tok := strings.TrimSpace(src()); tok != "" {
				return tok
			}
		}
		return ""
	}
}

// StaticToken wraps a fixed token value.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

// Response mirrors the admin-ajax JSON envelope.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Decode unmarshals the data member into dest.
func (r Response) Decode(dest any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, dest); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Options configure a Dispatcher.
type Options struct {
	Endpoint       string        // admin-ajax URL or site root
	Token          TokenSource   // required on every request
	TokenField     string        // form field carrying the token; default "nonce"
	Timeout        time.Duration // per request; default 30s
	MaxRetries     int           // default 3
	RetryBaseDelay time.Duration // default 1s
	ReportErrors   bool          // forward failures to mas_v2_log_error
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

const (
	defaultAjaxPath   = "/wp-admin/admin-ajax.php"
	defaultEndpoint   = "127.0.0.1"
	defaultTokenField = "nonce"
	defaultUserAgent  = "woow/0.1"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	reportTimeout     = 5 * time.Second
)

// Dispatcher sends admin-ajax requests and owns the retry queue.
type Dispatcher struct {
	endpoint     *url.URL
	http         *http.Client
	token        TokenSource
	tokenField   string
	timeout      time.Duration
	userAgent    string
	reportErrors bool
	logger       *slog.Logger

	maxRetries int
	baseDelay  time.Duration

	online atomic.Bool
	bg     sync.WaitGroup

	mu    sync.Mutex
	queue map[string]*PendingRequest
	ops   map[string]operation
}

// NewDispatcher builds a Dispatcher. The dispatcher starts online.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	endpoint, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		endpoint:     endpoint,
		http:         opts.HTTPClient,
		token:        opts.Token,
		tokenField:   strings.TrimSpace(opts.TokenField),
		timeout:      opts.Timeout,
		userAgent:    defaultUserAgent,
		reportErrors: opts.ReportErrors,
		logger:       opts.Logger,
		maxRetries:   opts.MaxRetries,
		baseDelay:    opts.RetryBaseDelay,
		queue:        make(map[string]*PendingRequest),
	}
	if d.http == nil {
		d.http = &http.Client{}
	}
	if d.token == nil {
		d.token = StaticToken("")
	}
	if d.tokenField == "" {
		d.tokenField = defaultTokenField
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	if d.maxRetries <= 0 {
		d.maxRetries = defaultMaxRetries
	}
	if d.baseDelay <= 0 {
		d.baseDelay = defaultBaseDelay
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	d.online.Store(true)
	d.registerOperations()
	return d, nil
}

// Endpoint returns the resolved admin-ajax URL.
func (d *Dispatcher) Endpoint() string {
	return d.endpoint.String()
}

// Online reports the dispatcher's current connectivity flag.
func (d *Dispatcher) Online() bool {
	return d.online.Load()
}

// SetOnline updates the connectivity flag. The offline to online transition
// starts a background drain of the retry queue.
func (d *Dispatcher) SetOnline(ctx context.Context, online bool) {
	was := d.online.Swap(online)
	if online && !was {
		d.logger.Info("connectivity restored, draining retry queue", "pending", d.PendingCount())
		d.bg.Add(1)
		go func() {
			defer d.bg.Done()
			d.DrainRetryQueue(ctx)
		}()
	} else if !online && was {
		d.logger.Warn("connectivity lost")
	}
}

// Wait blocks until background drains and error reports have finished.
func (d *Dispatcher) Wait() {
	d.bg.Wait()
}

// Dispatch posts action with payload to the endpoint. A successful call removes
// any retry entry keyed by requestID.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, payload url.Values, requestID string) (Response, error) {
	if d == nil {
		return Response{}, fmt.Errorf("dispatcher is nil")
	}
	if !action.Known() {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !d.Online() {
		return Response{}, ErrNetworkUnavailable
	}
	token := strings.TrimSpace(d.token())
	if token == "" {
		return Response{}, ErrMissingCredential
	}

	form := url.Values{}
	for key, values := range payload {
		form[key] = append([]string(nil), values...)
	}
	form.Set("action", string(action))
	form.Set(d.tokenField, token)

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.http.Do(req)
	if err != nil {
		return Response{}, d.classifyTransportErr(ctx, reqCtx, action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &TransportError{Action: action, Status: resp.StatusCode}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if reqCtx.Err() != nil {
			return Response{}, d.classifyTransportErr(ctx, reqCtx, action, err)
		}
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		msg, code := failureDetail(out.Data)
		return out, &OperationFailedError{Action: action, Message: msg, Code: code}
	}
	if requestID != "" {
		d.forget(requestID)
	}
	return out, nil
}

// Probe checks that the endpoint answers at all. It ignores the online flag,
// sends no token, and treats any response below 500 as reachable: admin-ajax
// answers a bare GET with 400 "0".
func (d *Dispatcher) Probe(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.http.Do(req)
	if err != nil {
		return d.classifyTransportErr(ctx, reqCtx, "probe", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &TransportError{Action: "probe", Status: resp.StatusCode}
	}
	return nil
}

func (d *Dispatcher) classifyTransportErr(parent, reqCtx context.Context, action Action, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w", action, parent.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s exceeded %s", ErrRequestTimeout, action, d.timeout)
	}
	return fmt.Errorf("%w: %s: %v", ErrFetchFailed, action, err)
}

// failureDetail pulls message and code out of a failed envelope's data member,
// which WordPress sends either as an object or a bare string.
func failureDetail(data json.RawMessage) (string, string) {
	const fallback = "operation failed"
	if len(data) == 0 {
		return fallback, ""
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return fallback, ""
		}
		return text, ""
	}
	var obj struct {
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fallback, ""
	}
	msg := strings.TrimSpace(obj.Message)
	if msg == "" {
		msg = fallback
	}
	code := strings.Trim(strings.TrimSpace(string(obj.Code)), `"`)
	if code == "null" {
		code = ""
	}
	return msg, code
}

func parseEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultEndpoint
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse ajax endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse ajax endpoint %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultAjaxPath
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
