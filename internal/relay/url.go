package relay

import (
	"net/url"
	"strings"
)

// AllowedHosts are the only hosts assets are fetched from. Matching is
// exact and case-sensitive.
var AllowedHosts = []string{
	"images.ctfassets.net",
	"downloads.ctfassets.net",
	"assets.ctfassets.net",
}

// ImageContentTypes are accepted for /asset. The upstream value only has
// to contain one of them.
var ImageContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/svg+xml",
	"image/gif",
}

const PDFContentType = "application/pdf"

// ValidateURL parses raw and accepts only https URLs on an allowed host.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newError(InvalidAssetURL, "Invalid asset URL", err)
	}
	if u.Scheme != "https" || !allowedHost(u.Hostname()) {
		return nil, newError(InvalidAssetURL, "Invalid asset URL", nil)
	}
	return u, nil
}

func allowedHost(h string) bool {
	for _, a := range AllowedHosts {
		if h == a {
			return true
		}
	}
	return false
}

func matchContentType(ct string, allowed []string) bool {
	for _, a := range allowed {
		if strings.Contains(ct, a) {
			return true
		}
	}
	return false
}
