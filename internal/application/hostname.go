package application

import (
	"net/url"
	"strings"
)

// Hostname returns the lower-cased host of raw without port. Bare hosts such
// as "example.com/login" are accepted. A value with no recognisable host is
// returned unchanged so it still compares by exact string.
func Hostname(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if h := u.Hostname(); h != "" {
			return strings.ToLower(h)
		}
		if u.Scheme == "" && !strings.HasPrefix(raw, "/") {
			if u2, err := url.Parse("//" + raw); err == nil && u2.Hostname() != "" {
				return strings.ToLower(u2.Hostname())
			}
		}
	}
	return raw
}

// SameHost reports whether a and b name exactly the same host. Subdomains
// are distinct hosts.
func SameHost(a, b string) bool {
	return Hostname(a) == Hostname(b)
}

// Origin splits a page location into the origin the credential is saved
// under and the origin plus path the login form was seen on.
func Origin(raw string) (origin, loginURL string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, raw
	}
	origin = u.Scheme + "://" + u.Host
	return origin, origin + u.EscapedPath()
}
