package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo is the device summary stored with audit rows
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop, unknown
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux
}

// ParseUserAgent parses a User-Agent header into device information
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{
			DeviceType: "unknown",
			OS:         "Unknown",
			Browser:    "Unknown",
			Platform:   "unknown",
		}
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	return DeviceInfo{
		DeviceType: deviceType(parser),
		OS:         osName(parser),
		Browser:    browser,
		BrowserVer: version,
		IsBot:      parser.Bot(),
		Platform:   platform(parser),
	}
}

func deviceType(parser *ua.UserAgent) string {
	lower := strings.ToLower(parser.UA())
	for _, indicator := range []string{"ipad", "tablet", "kindle", "nexus 7", "nexus 9", "nexus 10", "sm-t"} {
		if strings.Contains(lower, indicator) {
			return "tablet"
		}
	}
	// Android tablets omit "Mobile"
	if strings.Contains(lower, "android") && !strings.Contains(lower, "mobile") {
		return "tablet"
	}
	if parser.Mobile() {
		return "mobile"
	}
	return "desktop"
}

func osName(parser *ua.UserAgent) string {
	info := parser.OSInfo()
	if info.Name == "" {
		return "Unknown"
	}
	if info.Version != "" {
		return info.Name + " " + info.Version
	}
	return info.Name
}

func platform(parser *ua.UserAgent) string {
	name := strings.ToLower(parser.OSInfo().Name)

	platforms := []struct{ key, value string }{
		{"android", "android"},
		{"iphone os", "ios"},
		{"ios", "ios"},
		{"chrome os", "chromeos"},
		{"windows", "windows"},
		{"mac os x", "mac"},
		{"macos", "mac"},
		{"linux", "linux"},
		{"ubuntu", "linux"},
	}
	for _, p := range platforms {
		if strings.Contains(name, p.key) {
			return p.value
		}
	}
	return "unknown"
}
