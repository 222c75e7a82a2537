package probe

import (
	"net/http"
	"strings"
)

// signature describes one bot-protection vendor's tells. Header and body
// checks only fire alongside a blocking status code; markers alone are
// enough for browser-rendered pages where no status code is available.
type signature struct {
	source       string
	statusCodes  []int
	serverHeader string
	headerKeys   []string
	bodyMarkers  []string
}

var signatures = []signature{
	{
		source:       "Cloudflare",
		statusCodes:  []int{http.StatusForbidden, http.StatusServiceUnavailable},
		serverHeader: "cloudflare",
		bodyMarkers: []string{
			"cf-browser-verification",
			"cf-turnstile",
			"cloudflare-nginx",
			"Attention Required! | Cloudflare",
		},
	},
	{
		source:       "Akamai",
		statusCodes:  []int{http.StatusForbidden},
		serverHeader: "akamai",
		bodyMarkers:  []string{"errors.edgesuite.net"},
	},
	{
		source:       "DataDome",
		statusCodes:  []int{http.StatusForbidden},
		serverHeader: "datadome",
		headerKeys:   []string{"X-DataDome", "X-DataDome-Response"},
		bodyMarkers:  []string{"geo.captcha-delivery.com", "datadome"},
	},
	{
		source:      "PerimeterX",
		statusCodes: []int{http.StatusForbidden},
		headerKeys:  []string{"X-Px-Captcha"},
		bodyMarkers: []string{"px-captcha", "_pxhd"},
	},
}

// Detect classifies an HTTP response as a bot-protection challenge. It
// returns the vendor name and true on the first match.
func Detect(statusCode int, header http.Header, body []byte) (string, bool) {
	text := string(body)
	for _, sig := range signatures {
		if !sig.matchesStatus(statusCode) {
			continue
		}
		if sig.serverHeader != "" && strings.Contains(strings.ToLower(header.Get("Server")), sig.serverHeader) {
			return sig.source, true
		}
		for _, key := range sig.headerKeys {
			if header.Get(key) != "" {
				return sig.source, true
			}
		}
		for _, marker := range sig.bodyMarkers {
			if strings.Contains(text, marker) {
				return sig.source, true
			}
		}
	}
	return "", false
}

// SniffHTML checks a browser-rendered page for challenge markers. There is
// no status code to gate on, so only the body signatures apply.
func SniffHTML(html string) (string, bool) {
	for _, sig := range signatures {
		for _, marker := range sig.bodyMarkers {
			if strings.Contains(html, marker) {
				return sig.source, true
			}
		}
	}
	return "", false
}

func (s signature) matchesStatus(code int) bool {
	for _, c := range s.statusCodes {
		if c == code {
			return true
		}
	}
	return false
}
