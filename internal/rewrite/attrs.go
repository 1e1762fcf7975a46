package rewrite

import "bytes"

// attrSpan locates one attribute inside a raw start tag.
type attrSpan struct {
	key      []byte
	valStart int
	valEnd   int
	// quote is '"' or '\'' for quoted values and 0 otherwise.
	quote byte
}

func isTagSpace(c byte) bool {
	switch c {
	case ' ', '\n', '\r', '\t', '\f':
		return true
	}
	return false
}

// scanAttrs splits raw, the bytes of a start or self-closing tag as returned
// by html.Tokenizer.Raw, into attribute spans. It follows the tokenizer's own
// key and value rules so the spans agree with what TagAttr would report.
func scanAttrs(raw []byte) []attrSpan {
	n := len(raw)
	i := 1
	for i < n && !isTagSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' {
		i++
	}

	var attrs []attrSpan
	for {
		for i < n && isTagSpace(raw[i]) {
			i++
		}
		if i >= n || raw[i] == '>' {
			return attrs
		}

		ks, ke := i, i
	key:
		for ; i < n; i++ {
			switch raw[i] {
			case ' ', '\n', '\r', '\t', '\f', '/':
				ke = i
				i++
				break key
			case '=':
				// A leading '=' is part of the name.
				if i == ks {
					continue
				}
				ke = i
				break key
			case '>':
				ke = i
				break key
			}
			ke = i + 1
		}

		a := attrSpan{key: raw[ks:ke], valStart: i, valEnd: i}
		j := i
		for j < n && isTagSpace(raw[j]) {
			j++
		}
		if j < n && raw[j] == '=' {
			j++
			for j < n && isTagSpace(raw[j]) {
				j++
			}
			if j < n {
				switch q := raw[j]; q {
				case '>':
				case '"', '\'':
					vs := j + 1
					ve := n
					if k := bytes.IndexByte(raw[vs:], q); k >= 0 {
						ve = vs + k
						j = ve + 1
					} else {
						j = n
					}
					a.valStart, a.valEnd, a.quote = vs, ve, q
				default:
					vs := j
					for j < n && !isTagSpace(raw[j]) && raw[j] != '>' {
						j++
					}
					a.valStart, a.valEnd = vs, j
				}
			}
			i = j
		}

		if len(a.key) > 0 {
			attrs = append(attrs, a)
		}
	}
}
