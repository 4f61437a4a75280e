// Package device turns User-Agent headers into short labels for audit events.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns "<browser> on <os>", for example
// "Chrome on Intel Mac OS X 10_15_7". Mobile platforms are named so the label
// distinguishes phones from desktops.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return unknownDevice
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := ua.OS()
	if os == "" {
		os = "Unknown OS"
	}
	if platform := ua.Platform(); ua.Mobile() && platform != "" && !strings.Contains(os, platform) {
		os = platform + " " + os
	}

	return strings.Join(strings.Fields(browser+" on "+os), " ")
}
