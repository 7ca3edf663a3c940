// Package config loads woow's TOML configuration.
//
// # Overview
//
// The config names one WordPress site and tunes the client that talks to it:
// where admin-ajax and the plugin's REST namespace live, which nonce to send,
// how long requests may take, and how the retry queue and toast stack behave.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/woow/config.toml (default)
//  3. Load a .env file from the same directory, if present
//  4. If the config file doesn't exist, fall back to defaults
//  5. Apply WOOW_SITE_URL, WOOW_AJAX_URL and WOOW_REST_URL overrides
//  6. Derive ajax_url and rest_url from site_url when they are unset
//
// The .env file never replaces variables already present in the process
// environment.
//
// # TOML Format
//
//	site_url = "https://example.test"
//	nonce = "0123456789"
//	nonce_field = "nonce"
//	request_timeout = "30s"
//	max_retries = 3
//	retry_base_delay = "1s"
//	max_visible_toasts = 5
//	probe_interval = "15s"
//	log_file = "~/.local/state/woow/woow.log"
//	log_level = "info"
//
// Every field is optional. Durations use Go duration syntax.
//
// # Security Token
//
// Config.Token returns a wpajax.TokenSource that yields the first non-empty
// value of: the nonce field, WOOW_NONCE, MAS_V2_NONCE, WP_NONCE. Environment
// variables are read on every call, so a nonce refreshed in the environment
// is used by the next request.
//
// # Error Handling
//
// Load returns errors for unreadable files, TOML syntax errors, malformed
// durations and unknown log levels. A missing file is not an error.
package config
