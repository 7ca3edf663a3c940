package presets

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"
)

const presetTimestampLayout = "2006-01-02 15:04:05"

// Preset mirrors a stored settings bundle.
type Preset struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Settings    map[string]string `json:"settings"`
}

// APIError reports a failed REST call.
type APIError struct {
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("returned status %d", e.Status)
	}
	if e.Path == "" {
		return "preset api: " + msg
	}
	return fmt.Sprintf("preset api %s: %s", e.Path, msg)
}

func newAPIError(path string, status int, body []byte) *APIError {
	apiErr := &APIError{Path: path, Status: status}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	}
	return apiErr
}

// Values flattens the preset's settings into form values.
func (p Preset) Values() url.Values {
	return Flatten(p.Settings)
}

// Flatten renders decoded JSON settings as form values. Booleans become
// "1"/"0" and nested values stay JSON-encoded, the way PHP reads them back.
func Flatten(settings map[string]any) url.Values {
	out := make(url.Values, len(settings))
	for key, value := range settings {
		out.Set(key, formatValue(value))
	}
	return out
}

// Keys returns the preset's setting names in sorted order.
func (p Preset) Keys() []string {
	keys := make([]string, 0, len(p.Settings))
	for key := range p.Settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (p Preset) ParsedCreatedAt() time.Time {
	return parseTime(p.CreatedAt)
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if value {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(encoded)
	}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(presetTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
