// Package rewrite rewrites href references in HTML documents so that
// navigation keeps going through the proxy fetch endpoint.
//
// The document is walked with the x/net/html tokenizer and re-emitted from
// the raw token bytes. Only the value span of a quoted href attribute inside
// a start tag is ever replaced; comments, doctype, script and style bodies and
// every other attribute leave the rewriter byte-for-byte.
package rewrite

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// FetchEndpoint is the path rewritten links point at.
const FetchEndpoint = "/api/proxy/fetch"

// Stats reports what a single Rewrite call changed.
type Stats struct {
	// Links counts href values seen per classification, Skip included.
	Links map[Classification]int
	// BaseInjected is true when a <base> element was inserted.
	BaseInjected bool
}

// Rewritten returns the number of href values that were replaced.
func (s Stats) Rewritten() int {
	n := 0
	for c, v := range s.Links {
		if c != Skip {
			n += v
		}
	}
	return n
}

// Rewriter rewrites documents with a Classifier and a URLBuilder.
// A Rewriter holds no per-document state and is safe for concurrent use.
type Rewriter struct {
	classifier Classifier
	builder    URLBuilder
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithClassifier replaces the default lexical classifier.
func WithClassifier(c Classifier) Option {
	return func(r *Rewriter) { r.classifier = c }
}

// WithURLBuilder replaces the default proxy URL builder.
func WithURLBuilder(b URLBuilder) Option {
	return func(r *Rewriter) { r.builder = b }
}

// New creates a Rewriter. Without options it classifies with Classify and
// points links at FetchEndpoint.
func New(opts ...Option) *Rewriter {
	r := &Rewriter{
		classifier: ClassifierFunc(Classify),
		builder:    ProxyURLBuilder{Endpoint: FetchEndpoint},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the Rewriter used by the proxy.
var Default = New()

var headTag = []byte("<head>")

// Rewrite returns doc with every non-skipped href routed through the proxy
// and, when doc contains a literal <head> start tag, a <base> element pointing
// at origin inserted right after the first one.
func (r *Rewriter) Rewrite(doc []byte, origin string) ([]byte, Stats, error) {
	stats := Stats{Links: make(map[Classification]int)}
	out := bytes.NewBuffer(make([]byte, 0, len(doc)+len(doc)/8))

	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		tt := z.Next()
		raw := z.Raw()

		switch tt {
		case html.ErrorToken:
			// Whatever the tokenizer could not complete at EOF is still input.
			out.Write(raw)
			if err := z.Err(); err != io.EOF {
				return nil, stats, fmt.Errorf("rewrite: tokenize: %w", err)
			}
			return out.Bytes(), stats, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			r.writeTag(out, raw, origin, &stats)
			if tt == html.StartTagToken && !stats.BaseInjected && bytes.Equal(raw, headTag) {
				out.WriteString(`<base href="`)
				out.WriteString(html.EscapeString(origin + "/"))
				out.WriteString(`">`)
				stats.BaseInjected = true
			}

		default:
			out.Write(raw)
		}
	}
}

// writeTag copies a raw start tag to out, replacing the value of each quoted
// href attribute that does not classify as Skip.
func (r *Rewriter) writeTag(out *bytes.Buffer, raw []byte, origin string, stats *Stats) {
	last := 0
	for _, a := range scanAttrs(raw) {
		if a.quote == 0 || !bytes.EqualFold(a.key, hrefKey) {
			continue
		}

		value := strings.Trim(html.UnescapeString(string(raw[a.valStart:a.valEnd])), asciiSpace)
		class := r.classifier.Classify(value)
		stats.Links[class]++
		if class == Skip {
			continue
		}

		out.Write(raw[last:a.valStart])
		out.WriteString(escapeAttr(r.builder.Build(class, value, origin), a.quote))
		last = a.valEnd
	}
	out.Write(raw[last:])
}

var hrefKey = []byte("href")

const asciiSpace = " \t\n\r\f"

// escapeAttr escapes s for a value delimited by quote. Only the characters
// that could end the value or start an entity are touched.
func escapeAttr(s string, quote byte) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	if quote == '\'' {
		return strings.ReplaceAll(s, "'", "&#39;")
	}
	return strings.ReplaceAll(s, `"`, "&#34;")
}
