package rewrite

import (
	"strings"

	"proxybrowser-go/internal/urlutil"
)

// Classification is the category of an href value; it decides how the value
// is turned into a proxy-relative reference.
type Classification int

const (
	// Skip leaves the value untouched (fragments and javascript: links).
	Skip Classification = iota
	// External is an absolute http or https URL.
	External
	// ProtocolRelative starts with "//" and is pinned to https.
	ProtocolRelative
	// RootRelative starts with a single "/" and is joined to the origin.
	RootRelative
	// DocumentRelative is everything else, joined to origin + "/".
	DocumentRelative
)

var classificationNames = [...]string{
	Skip:             "skip",
	External:         "external",
	ProtocolRelative: "protocol_relative",
	RootRelative:     "root_relative",
	DocumentRelative: "document_relative",
}

// String returns the metric-friendly name of c.
func (c Classification) String() string {
	if c < 0 || int(c) >= len(classificationNames) {
		return "unknown"
	}
	return classificationNames[c]
}

// Classifications lists every classification in declaration order.
func Classifications() []Classification {
	return []Classification{Skip, External, ProtocolRelative, RootRelative, DocumentRelative}
}

// Classifier assigns a Classification to an href value.
type Classifier interface {
	Classify(href string) Classification
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(href string) Classification

// Classify calls f(href).
func (f ClassifierFunc) Classify(href string) Classification {
	return f(href)
}

// URLBuilder produces the replacement value for a classified href.
type URLBuilder interface {
	Build(c Classification, href, origin string) string
}

// Classify implements the default lexical rules. Scheme prefixes are matched
// case-insensitively.
func Classify(href string) Classification {
	switch {
	case strings.HasPrefix(href, "#"), hasPrefixFold(href, "javascript:"):
		return Skip
	case hasPrefixFold(href, "http://"), hasPrefixFold(href, "https://"):
		return External
	case strings.HasPrefix(href, "//"):
		return ProtocolRelative
	case strings.HasPrefix(href, "/"):
		return RootRelative
	default:
		return DocumentRelative
	}
}

// Absolute returns the absolute URL an href of class c points at. The
// document-relative join ignores the current document path.
func Absolute(c Classification, href, origin string) string {
	switch c {
	case ProtocolRelative:
		return "https:" + href
	case RootRelative:
		return origin + href
	case DocumentRelative:
		return origin + "/" + href
	default:
		return href
	}
}

// ProxyURLBuilder routes every rewritten link through Endpoint with the
// absolute target in the url query parameter.
type ProxyURLBuilder struct {
	Endpoint string
}

// Build returns Endpoint?url=<escaped absolute URL>.
func (b ProxyURLBuilder) Build(c Classification, href, origin string) string {
	return b.Endpoint + "?url=" + urlutil.EscapeComponent(Absolute(c, href, origin))
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
