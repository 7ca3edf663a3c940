// Package cssvars maps legacy mas-* CSS variable names onto their woow-*
// replacements.
//
// Older exports and presets still carry the 2.x names. The settings editor
// runs Translate before saving so the server only ever sees current names.
// Keys not listed in the table pass through untouched.
package cssvars

import (
	"net/url"
	"sort"
	"strings"
)

var legacy = map[string]string{
	"--mas-admin-bar-bg":        "--woow-admin-bar-bg",
	"--mas-admin-bar-text":      "--woow-admin-bar-text",
	"--mas-admin-bar-height":    "--woow-admin-bar-height",
	"--mas-menu-bg":             "--woow-menu-bg",
	"--mas-menu-text":           "--woow-menu-text",
	"--mas-menu-hover-bg":       "--woow-menu-hover-bg",
	"--mas-menu-hover-text":     "--woow-menu-hover-text",
	"--mas-menu-active-bg":      "--woow-menu-active-bg",
	"--mas-menu-width":          "--woow-menu-width",
	"--mas-submenu-bg":          "--woow-submenu-bg",
	"--mas-content-bg":          "--woow-content-bg",
	"--mas-accent":              "--woow-accent",
	"--mas-border-radius":       "--woow-radius",
	"--mas-shadow":              "--woow-shadow",
	"--mas-font-family":         "--woow-font-family",
	"--mas-font-size":           "--woow-font-size",
	"--mas-glass-blur":          "--woow-glass-blur",
	"--mas-glass-opacity":       "--woow-glass-opacity",
	"--mas-transition-duration": "--woow-transition",
}

// Lookup returns the current name for a legacy variable. The leading "--" is
// optional on input and preserved on output.
func Lookup(name string) (string, bool) {
	bare := !strings.HasPrefix(name, "--")
	key := name
	if bare {
		key = "--" + name
	}
	current, ok := legacy[key]
	if !ok {
		return name, false
	}
	if bare {
		current = strings.TrimPrefix(current, "--")
	}
	return current, true
}

// Translate returns a copy of settings with legacy variable keys renamed.
// When both the legacy and the current key are present the current one wins.
func Translate(settings url.Values) url.Values {
	out := make(url.Values, len(settings))
	renamed := make(map[string][]string)
	for key, values := range settings {
		if current, ok := Lookup(key); ok {
			renamed[current] = append([]string(nil), values...)
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	for key, values := range renamed {
		if _, exists := out[key]; !exists {
			out[key] = values
		}
	}
	return out
}

// Legacy lists the legacy names the table knows about, sorted.
func Legacy() []string {
	names := make([]string, 0, len(legacy))
	for name := range legacy {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
