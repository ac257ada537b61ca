package main

import (
	"net/url"
	"regexp"
)

var (
	// ANSI SGR sequences: ESC '[' params 'm'. The CLI colors its output.
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	jobLinkPattern = regexp.MustCompile(`Job Link:\s*(https?://\S+)`)
)

// stripANSI removes terminal color/style escapes so the link regex sees
// plain text.
func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// extractJobLink searches a whole snapshot for the first labeled job URL.
// The label's position varies between CLI versions, so the last line alone
// is not enough. Returns "" when no valid absolute URL is present; callers
// tell absence from failure by the empty sentinel, never by an error.
func extractJobLink(snapshot string) string {
	m := jobLinkPattern.FindStringSubmatch(stripANSI(snapshot))
	if len(m) < 2 {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	return m[1]
}
