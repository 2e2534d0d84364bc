// Package useragent classifies browsers from User-Agent headers.
package useragent

import "strings"

// Browser is a coarse browser family.
type Browser string

const (
	BrowserUnknown        Browser = ""
	BrowserFirefox        Browser = "firefox"
	BrowserFirefoxAndroid Browser = "firefox-android"
	BrowserFirefoxIOS     Browser = "firefox-ios"
	BrowserSeaMonkey      Browser = "seamonkey"
	BrowserEdge           Browser = "edge"
	BrowserChrome         Browser = "chrome"
	BrowserSafari         Browser = "safari"
)

// Classify maps a User-Agent header to a browser family. Token order
// matters: SeaMonkey advertises Firefox and Chrome derivatives advertise
// Safari.
func Classify(userAgent string) Browser {
	ua := strings.TrimSpace(userAgent)
	switch {
	case ua == "":
		return BrowserUnknown
	case strings.Contains(ua, "SeaMonkey/"):
		return BrowserSeaMonkey
	case strings.Contains(ua, "FxiOS/"):
		return BrowserFirefoxIOS
	case strings.Contains(ua, "Firefox/"):
		if strings.Contains(ua, "Android") {
			return BrowserFirefoxAndroid
		}
		return BrowserFirefox
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"):
		return BrowserEdge
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "CriOS/"):
		return BrowserChrome
	case strings.Contains(ua, "Safari/"):
		return BrowserSafari
	default:
		return BrowserUnknown
	}
}

// IsFirefox reports whether userAgent belongs to any Firefox product.
func IsFirefox(userAgent string) bool {
	switch Classify(userAgent) {
	case BrowserFirefox, BrowserFirefoxAndroid, BrowserFirefoxIOS:
		return true
	default:
		return false
	}
}
