package hls

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/iconidentify/inthistweet/internal/domain"
)

var (
	originUnsafe = regexp.MustCompile(`[:/]`)
	pathUnsafe   = regexp.MustCompile(`[^a-zA-Z0-9\-_./]`)
)

// URLToFilePath maps an absolute URL to the flat key used in a FileMap.
// The origin has ':' and '/' replaced with '_' and the escaped path keeps
// only [A-Za-z0-9-_./], so "https://a.com/x/y.ts" becomes
// "https___a.com/x/y.ts". Query and fragment are not part of the key.
//
// Distinct URLs can map to the same key (for example "/x y.ts" and
// "/x_y.ts"); callers accept that collision risk.
func URLToFilePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", domain.ErrInvalidInput, rawURL)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return originUnsafe.ReplaceAllString(origin(u), "_") + pathUnsafe.ReplaceAllString(path, "_"), nil
}

// origin renders scheme://host[:port], dropping the scheme's default port.
func origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}
