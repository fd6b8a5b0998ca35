package services

import (
	"strings"

	"github.com/mileusna/useragent"
)

// ExtractDeviceInfo turns a User-Agent header into a short human-readable
// device description, stored alongside FCM token registrations so users
// can recognize which device a token belongs to.
//
// Returns strings like "Chrome 120 · Android 14 · Mobile", or
// "Unknown Device" for an empty User-Agent.
func ExtractDeviceInfo(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}

	ua := useragent.Parse(userAgent)

	var parts []string

	if ua.Name != "" {
		browser := ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
		parts = append(parts, browser)
	}

	if ua.OS != "" {
		os := ua.OS
		if ua.OSVersion != "" {
			os += " " + ua.OSVersion
		}
		parts = append(parts, os)
	}

	if ua.Mobile {
		parts = append(parts, "Mobile")
	} else if ua.Tablet {
		parts = append(parts, "Tablet")
	} else if ua.Desktop {
		parts = append(parts, "Desktop")
	}

	if len(parts) == 0 {
		return "Unknown Device"
	}
	return strings.Join(parts, " · ")
}
