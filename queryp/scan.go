package queryp

import "strconv"

type segmentKind uint8

const (
	text segmentKind = iota
	question
	dollar
	named
)

// segment is a run of query text, or a single placeholder.
type segment struct {
	kind segmentKind
	text string
	// name of a named placeholder, or the number of a dollar one
	name string
	n    int
}

// segments splits query into text and placeholders. Quoted strings, quoted identifiers, comments
// and postgres "::" casts are kept as text.
func segments(query string) []segment {
	var (
		out   []segment
		start int
	)
	flush := func(end int) {
		if end > start {
			out = append(out, segment{kind: text, text: query[start:end]})
		}
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(query, i, c)
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			i = skipUntil(query, i+2, "\n") - 1
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			i = skipUntil(query, i+2, "*/") - 1
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			i++
		case c == '?':
			flush(i)
			out = append(out, segment{kind: question, text: "?"})
			start = i + 1
		case c == '$' && i+1 < len(query) && isDigit(query[i+1]):
			j := i + 1
			for j < len(query) && isDigit(query[j]) {
				j++
			}
			n, _ := strconv.Atoi(query[i+1 : j])
			flush(i)
			out = append(out, segment{kind: dollar, text: query[i:j], n: n})
			start = j
			i = j - 1
		case c == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			j := i + 1
			for j < len(query) && isNameChar(query[j]) {
				j++
			}
			flush(i)
			out = append(out, segment{kind: named, text: query[i:j], name: query[i+1 : j]})
			start = j
			i = j - 1
		}
	}
	flush(len(query))
	return out
}

// skipQuoted returns the index of the quote closing the one at i. Doubled quotes are escapes.
func skipQuoted(query string, i int, quote byte) int {
	for j := i + 1; j < len(query); j++ {
		if query[j] != quote {
			continue
		}
		if j+1 < len(query) && query[j+1] == quote {
			j++
			continue
		}
		return j
	}
	return len(query) - 1
}

// skipUntil returns the index just past the next end, or len(query).
func skipUntil(query string, i int, end string) int {
	for j := i; j+len(end) <= len(query); j++ {
		if query[j:j+len(end)] == end {
			return j + len(end)
		}
	}
	return len(query)
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }
func isNameChar(c byte) bool  { return isNameStart(c) || isDigit(c) }
