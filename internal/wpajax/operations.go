package wpajax

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Method names used as replay keys in the retry queue.
const (
	MethodSaveSettings   = "saveSettings"
	MethodResetSettings  = "resetSettings"
	MethodExportSettings = "exportSettings"
	MethodImportSettings = "importSettings"
	MethodPreviewCSS     = "previewCSS"
)

type operation func(ctx context.Context, requestID string, args []any) (Response, error)

// retryable marks methods whose network failures are queued. Reads are not:
// their caller needs the answer now, not after reconnecting.
var retryable = map[string]bool{
	MethodSaveSettings:   true,
	MethodResetSettings:  true,
	MethodImportSettings: true,
}

var requestPrefixes = map[string]string{
	MethodSaveSettings:   "save",
	MethodResetSettings:  "reset",
	MethodExportSettings: "export",
	MethodImportSettings: "import",
	MethodPreviewCSS:     "preview",
}

func (d *Dispatcher) registerOperations() {
	d.ops = map[string]operation{
		MethodSaveSettings: func(ctx context.Context, id string, args []any) (Response, error) {
			settings, err := valuesArg(args, 0)
			if err != nil {
				return Response{}, err
			}
			return d.Dispatch(ctx, ActionSaveSettings, settings, id)
		},
		MethodResetSettings: func(ctx context.Context, id string, _ []any) (Response, error) {
			return d.Dispatch(ctx, ActionResetSettings, nil, id)
		},
		MethodExportSettings: func(ctx context.Context, id string, _ []any) (Response, error) {
			return d.Dispatch(ctx, ActionExportSettings, nil, id)
		},
		MethodImportSettings: func(ctx context.Context, id string, args []any) (Response, error) {
			data, err := stringArg(args, 0)
			if err != nil {
				return Response{}, err
			}
			return d.Dispatch(ctx, ActionImportSettings, url.Values{"import_data": {data}}, id)
		},
		MethodPreviewCSS: func(ctx context.Context, id string, args []any) (Response, error) {
			settings, err := valuesArg(args, 0)
			if err != nil {
				return Response{}, err
			}
			return d.Dispatch(ctx, ActionPreviewCSS, settings, id)
		},
	}
}

func (d *Dispatcher) operation(method string) (operation, bool) {
	op, ok := d.ops[method]
	return op, ok
}

// SaveSettings persists the given settings fields.
func (d *Dispatcher) SaveSettings(ctx context.Context, settings url.Values) (Response, error) {
	return d.call(ctx, MethodSaveSettings, []any{cloneValues(settings)})
}

// ResetSettings restores the plugin defaults server-side.
func (d *Dispatcher) ResetSettings(ctx context.Context) (Response, error) {
	return d.call(ctx, MethodResetSettings, nil)
}

// ExportSettings returns the current settings as an exportable document.
func (d *Dispatcher) ExportSettings(ctx context.Context) (map[string]any, error) {
	resp, err := d.call(ctx, MethodExportSettings, nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ImportSettings uploads a previously exported JSON document.
func (d *Dispatcher) ImportSettings(ctx context.Context, data string) (Response, error) {
	if strings.TrimSpace(data) == "" {
		return Response{}, fmt.Errorf("import data is empty")
	}
	return d.call(ctx, MethodImportSettings, []any{data})
}

// PreviewCSS asks the server to render CSS for unsaved settings.
func (d *Dispatcher) PreviewCSS(ctx context.Context, settings url.Values) (string, error) {
	resp, err := d.call(ctx, MethodPreviewCSS, []any{cloneValues(settings)})
	if err != nil {
		return "", err
	}
	var out struct {
		CSS string `json:"css"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	return out.CSS, nil
}

func (d *Dispatcher) call(ctx context.Context, method string, args []any) (Response, error) {
	op, ok := d.operation(method)
	if !ok {
		return Response{}, fmt.Errorf("unknown method %q", method)
	}
	requestID := newRequestID(requestPrefixes[method])
	resp, err := op(ctx, requestID, args)
	if err != nil {
		if retryable[method] && IsNetworkError(err) {
			d.EnqueueRetry(requestID, method, args)
		}
		d.report(ctx, method, err)
		return resp, err
	}
	return resp, nil
}

// report logs a failed operation and forwards it to the plugin's error log.
// Forwarding is skipped when the failure itself is a connectivity problem and
// never goes through call, so a failing report cannot trigger another one.
func (d *Dispatcher) report(ctx context.Context, method string, cause error) {
	d.logger.Error("ajax operation failed", "method", method, "error", cause)
	if !d.reportErrors || IsNetworkError(cause) || errors.Is(cause, ErrMissingCredential) {
		return
	}
	d.bg.Add(1)
	go func() {
		defer d.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Debug("error report panicked", "panic", r)
			}
		}()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		defer cancel()
		form := url.Values{
			"message": {cause.Error()},
			"context": {method},
			"level":   {"error"},
		}
		if _, err := d.Dispatch(rctx, ActionLogError, form, ""); err != nil {
			d.logger.Debug("error report dropped", "error", err)
		}
	}()
}

func newRequestID(prefix string) string {
	if prefix == "" {
		prefix = "req"
	}
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func valuesArg(args []any, idx int) (url.Values, error) {
	if idx >= len(args) {
		return nil, fmt.Errorf("missing argument %d", idx)
	}
	switch v := args[idx].(type) {
	case url.Values:
		return v, nil
	case map[string]string:
		out := url.Values{}
		for key, value := range v {
			out.Set(key, value)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("argument %d: unexpected type %T", idx, args[idx])
	}
}

func stringArg(args []any, idx int) (string, error) {
	if idx >= len(args) {
		return "", fmt.Errorf("missing argument %d", idx)
	}
	s, ok := args[idx].(string)
	if !ok {
		return "", fmt.Errorf("argument %d: unexpected type %T", idx, args[idx])
	}
	return s, nil
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}
