package youtube

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAllowedHosts are the hosts accepted when none are configured
var DefaultAllowedHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"m.youtube.com",
	"music.youtube.com",
	"youtu.be",
}

// ValidateURL checks that rawURL is an absolute http(s) link to an allowed host.
// It performs no I/O.
func ValidateURL(rawURL string, allowedHosts []string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("URL is empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("not a valid URL: scheme must be http or https")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("not a valid URL: missing host")
	}

	if len(allowedHosts) == 0 {
		allowedHosts = DefaultAllowedHosts
	}
	for _, allowed := range allowedHosts {
		if host == strings.ToLower(allowed) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("host %q is not a supported video site", host)
}
