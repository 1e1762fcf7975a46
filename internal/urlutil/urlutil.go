// Package urlutil holds the URL helpers shared by the resolver and the link rewriter.
package urlutil

import (
	"net"
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Origin returns scheme://host[:port] for an absolute URL. Scheme and host are
// lowercased and the scheme's default port is dropped.
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()

	if port != "" && port != defaultPorts[scheme] {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return scheme + "://" + host
}

// EscapeComponent percent-encodes s for use as a single query value.
// Spaces become %20 rather than '+', so the result decodes the same way
// under both query and path unescaping.
func EscapeComponent(s string) string {
	// QueryEscape turns a literal '+' into %2B, so every '+' left is a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
