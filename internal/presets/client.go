package presets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/woow-admin/woow/internal/wpajax"
)

// Store defines the preset operations used by the UI.
// This interface is implemented by *Client and can be used for testing.
type Store interface {
	List(ctx context.Context) ([]Preset, error)
	Create(ctx context.Context, req CreateRequest) (Preset, error)
	Apply(ctx context.Context, id int64) error
	Export(ctx context.Context, id int64) (json.RawMessage, error)
	Import(ctx context.Context, data json.RawMessage) (Preset, error)
	Delete(ctx context.Context, id int64) error
}

// Ensure Client implements Store at compile time.
var _ Store = (*Client)(nil)

// Client talks to the plugin's preset REST resource.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     wpajax.TokenSource
	userAgent string
}

const (
	defaultRESTBase  = "http://127.0.0.1/wp-json/mas-v2/v1/"
	defaultUserAgent = "woow/0.1"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client for restBase, the plugin's REST namespace URL.
func NewClient(restBase string, token wpajax.TokenSource) (*Client, error) {
	base, err := parseBaseURL(restBase)
	if err != nil {
		return nil, err
	}
	if token == nil {
		token = wpajax.StaticToken("")
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		token:     token,
		userAgent: defaultUserAgent,
	}, nil
}

// List returns all stored presets.
func (c *Client) List(ctx context.Context) ([]Preset, error) {
	var out []Preset
	if err := c.do(ctx, http.MethodGet, "presets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores a new preset built from the given settings.
func (c *Client) Create(ctx context.Context, req CreateRequest) (Preset, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Preset{}, fmt.Errorf("preset name required")
	}
	var out Preset
	if err := c.do(ctx, http.MethodPost, "presets", req, &out); err != nil {
		return Preset{}, err
	}
	return out, nil
}

// Apply makes the preset's settings the active settings.
func (c *Client) Apply(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("preset id required")
	}
	return c.do(ctx, http.MethodPost, "presets/"+strconv.FormatInt(id, 10)+"/apply", nil, nil)
}

// Export returns the preset as a portable JSON document.
func (c *Client) Export(ctx context.Context, id int64) (json.RawMessage, error) {
	if id <= 0 {
		return nil, fmt.Errorf("preset id required")
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "presets/"+strconv.FormatInt(id, 10)+"/export", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Import stores a preset from a document produced by Export.
func (c *Client) Import(ctx context.Context, data json.RawMessage) (Preset, error) {
	if !json.Valid(data) {
		return Preset{}, fmt.Errorf("import data is not valid JSON")
	}
	var out Preset
	if err := c.do(ctx, http.MethodPost, "presets/import", data, &out); err != nil {
		return Preset{}, err
	}
	return out, nil
}

// Delete removes a preset.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("preset id required")
	}
	return c.do(ctx, http.MethodDelete, "presets/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	token := strings.TrimSpace(c.token())
	if token == "" {
		return wpajax.ErrMissingCredential
	}

	var reader io.Reader
	if body != nil {
		var payload []byte
		if raw, ok := body.(json.RawMessage); ok {
			payload = raw
		} else {
			encoded, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			payload = encoded
		}
		reader = bytes.NewReader(payload)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-WP-Nonce", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", wpajax.ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return newAPIError(path, resp.StatusCode, raw)
	}
	if dest == nil {
		return nil
	}
	if err := decodeEnvelope(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeEnvelope accepts both bare REST payloads and the plugin's
// {"success": true, "data": ...} wrapper.
func decodeEnvelope(raw []byte, dest any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '{' {
		var env struct {
			Success *bool           `json:"success"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil {
			if !*env.Success {
				msg := "request failed"
				var detail struct {
					Message string `json:"message"`
				}
				if json.Unmarshal(env.Data, &detail) == nil && detail.Message != "" {
					msg = detail.Message
				}
				return &APIError{Status: http.StatusOK, Message: msg}
			}
			trimmed = env.Data
		}
	}
	if len(trimmed) == 0 {
		return nil
	}
	return json.Unmarshal(trimmed, dest)
}

func parseBaseURL(restBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(restBase)
	if trimmed == "" {
		trimmed = defaultRESTBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse rest_url %q: %w", restBase, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
