// Package presets is a small client for the plugin's preset REST resource.
//
// Presets are named settings bundles stored server-side. The client lists,
// creates, applies, exports, imports and deletes them under the plugin's
// REST namespace (default http://127.0.0.1/wp-json/mas-v2/v1/).
//
// Every request carries the WordPress nonce in the X-WP-Nonce header, read
// from the same token source the AJAX dispatcher uses. A missing nonce fails
// with wpajax.ErrMissingCredential before anything is sent. Transport
// failures wrap wpajax.ErrFetchFailed so wpajax.IsNetworkError classifies
// them the same way for both surfaces.
//
// Responses may be bare REST payloads or the plugin's {"success", "data"}
// envelope; both decode into the same types. HTTP errors and
// success:false envelopes surface as *APIError.
package presets
